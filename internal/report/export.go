package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/TrevorS/optics"
)

// WriteLabelsCSV writes one row per point with its label, core flag,
// ordering position, reachability and core distance.
func WriteLabelsCSV(w io.Writer, res *optics.Result) error {
	position := make([]int, len(res.Ordering))
	for pos, p := range res.Ordering {
		position[p] = pos
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"point", "label", "core", "position", "reachability", "core_distance"}); err != nil {
		return err
	}
	for p := range res.Labels {
		err := cw.Write([]string{
			strconv.Itoa(p),
			strconv.Itoa(res.Labels[p]),
			strconv.FormatBool(res.IsCore[p]),
			strconv.Itoa(position[p]),
			strconv.FormatFloat(res.Reachability[p], 'g', -1, 64),
			strconv.FormatFloat(res.CoreDistances[p], 'g', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// TreeDoc is the serialized form of a cluster tree node.
type TreeDoc struct {
	Start    int       `yaml:"start"`
	End      int       `yaml:"end"`
	Split    int       `yaml:"split"`
	Points   []int     `yaml:"points,omitempty,flow"`
	Children []TreeDoc `yaml:"children,omitempty"`
}

// NewTreeDoc converts a tree. With ordering set, every node lists the
// original indices of the points it covers.
func NewTreeDoc(node *optics.TreeNode, ordering []int) TreeDoc {
	doc := TreeDoc{Start: node.Start, End: node.End, Split: node.SplitPoint}
	if ordering != nil {
		doc.Points = node.Points(ordering)
	}
	for _, c := range node.Children {
		doc.Children = append(doc.Children, NewTreeDoc(c, ordering))
	}
	return doc
}

// WriteTreeYAML encodes the hierarchy's tree as YAML.
func WriteTreeYAML(w io.Writer, h *optics.Hierarchy, withPoints bool) error {
	var ordering []int
	if withPoints {
		ordering = h.Ordering
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewTreeDoc(h.Root, ordering)); err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return enc.Close()
}

// WriteTreeText prints the tree one node per entry, prefixed by its level.
func WriteTreeText(w io.Writer, root *optics.TreeNode) error {
	var err error
	root.Walk(func(node *optics.TreeNode, depth int) bool {
		if err != nil {
			return false
		}
		_, err = fmt.Fprintf(w, "Level %d\n%s\n", depth, node)
		return err == nil
	})
	return err
}
