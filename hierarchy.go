package optics

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// HierarchyConfig tunes the reachability-plot segmentation.
// Start with [DefaultHierarchyConfig] and override fields; a zero field
// means zero, e.g. SignificantMin 0 lets every maximum split. Only the zero
// HierarchyConfig as a whole stands for the defaults.
type HierarchyConfig struct {
	// SignificantMin is the absolute floor below which a local maximum is
	// never used as a split point. Default: 0.003.
	SignificantMin float64

	// MaximaRatio is the tail-average to split-height ratio above which a
	// split is considered unbalanced near the maximum. Default: 0.75.
	MaximaRatio float64

	// RejectionRatio decides which side of an unbalanced split is dropped:
	// a side whose tail ratio is below it causes the other side to be
	// rejected. If both sides reach it the split is discarded. Default: 0.7.
	RejectionRatio float64

	// SimilarityThreshold is the child-to-parent span ratio above which a
	// node is flattened into its parent. Lower values give shallower trees.
	// Default: 0.4.
	SimilarityThreshold float64

	// CheckRatio is the fraction of each tentative child, adjacent to the
	// split, whose reachabilities are averaged. Default: 0.8.
	CheckRatio float64

	// MinClusterSizeRatio scales the minimum leaf size with n, floored at
	// MinClusterSizeFloor. Defaults: 0.005 and 5.
	MinClusterSizeRatio float64
	MinClusterSizeFloor int

	// MinMaximaRatio scales the local-maximum neighborhood half-width with
	// n, floored at MinNeighborhoodSize. Defaults: 0.001 and 2.
	MinMaximaRatio      float64
	MinNeighborhoodSize int

	// MinReachRatio drops local maxima lower than this fraction of the
	// largest finite reachability. 0 disables the filter. Default: 0.
	MinReachRatio float64
}

// DefaultHierarchyConfig returns the standard segmentation parameters.
func DefaultHierarchyConfig() HierarchyConfig {
	return HierarchyConfig{
		SignificantMin:      0.003,
		MaximaRatio:         0.75,
		RejectionRatio:      0.7,
		SimilarityThreshold: 0.4,
		CheckRatio:          0.8,
		MinClusterSizeRatio: 0.005,
		MinClusterSizeFloor: 5,
		MinMaximaRatio:      0.001,
		MinNeighborhoodSize: 2,
	}
}

// applyHierarchyDefaults replaces the zero HierarchyConfig with the
// defaults. Any other value is used as given, so explicit zeros survive.
func applyHierarchyDefaults(cfg *HierarchyConfig) {
	if *cfg == (HierarchyConfig{}) {
		*cfg = DefaultHierarchyConfig()
	}
}

func validateHierarchyConfig(cfg *HierarchyConfig) error {
	ratios := []struct {
		name string
		v    float64
	}{
		{"SignificantMin", cfg.SignificantMin},
		{"MaximaRatio", cfg.MaximaRatio},
		{"RejectionRatio", cfg.RejectionRatio},
		{"SimilarityThreshold", cfg.SimilarityThreshold},
		{"CheckRatio", cfg.CheckRatio},
		{"MinClusterSizeRatio", cfg.MinClusterSizeRatio},
		{"MinMaximaRatio", cfg.MinMaximaRatio},
		{"MinReachRatio", cfg.MinReachRatio},
	}
	for _, r := range ratios {
		if r.v < 0 || math.IsNaN(r.v) || math.IsInf(r.v, 0) {
			return fmt.Errorf("optics: %s must be a finite value >= 0, got %v: %w", r.name, r.v, ErrInvalidParameter)
		}
	}
	if cfg.CheckRatio > 1 {
		return fmt.Errorf("optics: CheckRatio must be <= 1, got %v: %w", cfg.CheckRatio, ErrInvalidParameter)
	}
	if cfg.MinClusterSizeFloor < 1 {
		return fmt.Errorf("optics: MinClusterSizeFloor must be >= 1, got %d: %w", cfg.MinClusterSizeFloor, ErrInvalidParameter)
	}
	if cfg.MinNeighborhoodSize < 1 {
		return fmt.Errorf("optics: MinNeighborhoodSize must be >= 1, got %d: %w", cfg.MinNeighborhoodSize, ErrInvalidParameter)
	}
	return nil
}

// minClusterSize is the smallest child span kept by a split.
func (cfg HierarchyConfig) minClusterSize(n int) int {
	return max(int(cfg.MinClusterSizeRatio*float64(n)), cfg.MinClusterSizeFloor)
}

// neighborhoodSize is the half-width a local maximum must dominate.
func (cfg HierarchyConfig) neighborhoodSize(n int) int {
	return max(int(cfg.MinMaximaRatio*float64(n)), cfg.MinNeighborhoodSize)
}

// NoSplit is the SplitPoint of a node that was not split.
const NoSplit = -1

// TreeNode is a node of the cluster tree. It covers the ordering positions
// [Start, End); Children own disjoint sub-ranges in left-to-right order.
type TreeNode struct {
	Start      int
	End        int
	SplitPoint int
	Children   []*TreeNode

	parent *TreeNode
}

func newTreeNode(start, end int, parent *TreeNode) *TreeNode {
	return &TreeNode{Start: start, End: end, SplitPoint: NoSplit, parent: parent}
}

// Parent returns the enclosing node, or nil for the root.
func (t *TreeNode) Parent() *TreeNode { return t.parent }

// Len is the number of ordering positions the node covers.
func (t *TreeNode) Len() int { return t.End - t.Start }

// IsLeaf reports whether the node has no children.
func (t *TreeNode) IsLeaf() bool { return len(t.Children) == 0 }

func (t *TreeNode) String() string {
	return fmt.Sprintf("start: %d, end %d, split: %d", t.Start, t.End, t.SplitPoint)
}

// Points maps the node's range back to original point indices.
func (t *TreeNode) Points(ordering []int) []int {
	return slices.Clone(ordering[t.Start:t.End])
}

// Walk visits the subtree depth-first in pre-order. Returning false from
// fn skips the node's children.
func (t *TreeNode) Walk(fn func(node *TreeNode, depth int) bool) {
	t.walk(fn, 0)
}

func (t *TreeNode) walk(fn func(*TreeNode, int) bool, depth int) {
	if !fn(t, depth) {
		return
	}
	for _, c := range t.Children {
		c.walk(fn, depth+1)
	}
}

// Leaves returns the leaf nodes left to right.
func (t *TreeNode) Leaves() []*TreeNode {
	var leaves []*TreeNode
	t.Walk(func(node *TreeNode, _ int) bool {
		if node.IsLeaf() {
			leaves = append(leaves, node)
		}
		return true
	})
	return leaves
}

// Levels groups the nodes of the subtree by depth; Levels()[0] is {t}.
func (t *TreeNode) Levels() [][]*TreeNode {
	var levels [][]*TreeNode
	t.Walk(func(node *TreeNode, depth int) bool {
		if len(levels) <= depth {
			levels = append(levels, nil)
		}
		levels[depth] = append(levels[depth], node)
		return true
	})
	return levels
}

// Hierarchy is the result of a hierarchical extraction.
type Hierarchy struct {
	// Root covers the whole reachability plot.
	Root *TreeNode

	// ReachabilityPlot is the reachability sequence in ordering order.
	ReachabilityPlot []float64

	// Ordering maps plot positions to point indices.
	Ordering []int

	// Labels assigns every point the 1-based index of the leaf covering it,
	// counted left to right, or Noise.
	Labels []int

	// IsCore marks labeled points that are core at the build threshold.
	IsCore []bool

	// NClusters is the number of leaves.
	NClusters int
}

// Leaves returns the extracted clusters left to right.
func (h *Hierarchy) Leaves() []*TreeNode { return h.Root.Leaves() }

// FindLocalMaxima returns the positions of rplot that are strict rises over
// their left neighbor, at least their right neighbor, and no lower than any
// position within nghsize on either side. The first and last positions are
// never maxima. The result is sorted by height, highest first; equal
// heights keep position order.
func FindLocalMaxima(rplot []float64, nghsize int) []int {
	var maxima []int
	for i := 1; i < len(rplot)-1; i++ {
		if rplot[i] > rplot[i-1] && rplot[i] >= rplot[i+1] && dominatesNeighborhood(rplot, i, nghsize) {
			maxima = append(maxima, i)
		}
	}
	sort.SliceStable(maxima, func(a, b int) bool {
		return rplot[maxima[a]] > rplot[maxima[b]]
	})
	return maxima
}

func dominatesNeighborhood(rplot []float64, i, nghsize int) bool {
	for d := 1; d <= nghsize; d++ {
		if i+d < len(rplot) && rplot[i] < rplot[i+d] {
			return false
		}
		if i-d >= 0 && rplot[i] < rplot[i-d] {
			return false
		}
	}
	return true
}

// filterMaxima drops maxima lower than ratio times the largest finite value
// in rplot.
func filterMaxima(rplot []float64, maxima []int, ratio float64) []int {
	if ratio <= 0 {
		return maxima
	}
	var top float64
	for _, v := range rplot {
		if !math.IsInf(v, 0) && v > top {
			top = v
		}
	}
	floor := ratio * top
	return slices.DeleteFunc(maxima, func(p int) bool { return rplot[p] < floor })
}

type hierarchyBuilder struct {
	cfg            HierarchyConfig
	rplot          []float64
	minClusterSize int
}

// BuildClusterTree segments a reachability plot into a cluster tree.
func BuildClusterTree(rplot []float64, cfg HierarchyConfig) *TreeNode {
	n := len(rplot)
	maxima := FindLocalMaxima(rplot, cfg.neighborhoodSize(n))
	maxima = filterMaxima(rplot, maxima, cfg.MinReachRatio)

	b := &hierarchyBuilder{cfg: cfg, rplot: rplot, minClusterSize: cfg.minClusterSize(n)}
	root := newTreeNode(0, n, nil)
	b.split(root, maxima)
	return root
}

// split tries the candidates of node, highest first, until one yields at
// least one surviving child, then recurses into the survivors. maxima must
// lie within node's range and be sorted by height.
func (b *hierarchyBuilder) split(node *TreeNode, maxima []int) {
	for len(maxima) > 0 {
		s := maxima[0]
		maxima = maxima[1:]
		node.SplitPoint = s

		if b.rplot[s] < b.cfg.SignificantMin {
			node.SplitPoint = NoSplit
			continue
		}

		left := newTreeNode(node.Start, s, node)
		right := newTreeNode(s+1, node.End, node)
		keepLeft, keepRight := true, true

		leftRatio := b.leftTail(left) / b.rplot[s]
		rightRatio := b.rightTail(right) / b.rplot[s]
		if leftRatio > b.cfg.MaximaRatio || rightRatio > b.cfg.MaximaRatio {
			if leftRatio >= b.cfg.RejectionRatio && rightRatio >= b.cfg.RejectionRatio {
				node.SplitPoint = NoSplit
				continue
			}
			if leftRatio < b.cfg.RejectionRatio {
				keepRight = false
			}
			if rightRatio < b.cfg.RejectionRatio {
				keepLeft = false
			}
		}

		if left.Len() < b.minClusterSize {
			keepLeft = false
		}
		if right.Len() < b.minClusterSize {
			keepRight = false
		}

		var kids []*TreeNode
		var kidMaxima [][]int
		if keepLeft {
			kids = append(kids, left)
			kidMaxima = append(kidMaxima, within(maxima, left))
		}
		if keepRight {
			kids = append(kids, right)
			kidMaxima = append(kidMaxima, within(maxima, right))
		}
		if len(kids) == 0 {
			node.SplitPoint = NoSplit
			return
		}

		owner := node
		if p := node.parent; p != nil && float64(node.Len())/float64(p.Len()) > b.cfg.SimilarityThreshold {
			p.replaceChild(node, kids)
			owner = p
		} else {
			node.Children = append(node.Children, kids...)
		}
		for i, kid := range kids {
			kid.parent = owner
			b.split(kid, kidMaxima[i])
		}
		return
	}
}

// leftTail averages the last CheckRatio share of the left child.
func (b *hierarchyBuilder) leftTail(left *TreeNode) float64 {
	k := int(math.RoundToEven(b.cfg.CheckRatio * float64(left.Len())))
	return stat.Mean(b.rplot[left.End-k:left.End], nil)
}

// rightTail averages the first CheckRatio share of the right child, at
// least one position, clamped to the child's range.
func (b *hierarchyBuilder) rightTail(right *TreeNode) float64 {
	k := max(int(math.RoundToEven(b.cfg.CheckRatio*float64(right.Len()))), 1)
	end := min(right.Start+k, right.End)
	return stat.Mean(b.rplot[right.Start:end], nil)
}

// replaceChild splices kids into t.Children in place of old.
func (t *TreeNode) replaceChild(old *TreeNode, kids []*TreeNode) {
	i := slices.Index(t.Children, old)
	if i < 0 {
		t.Children = append(t.Children, kids...)
		return
	}
	t.Children = slices.Replace(t.Children, i, i+1, kids...)
	old.parent = nil
}

func within(maxima []int, node *TreeNode) []int {
	var out []int
	for _, m := range maxima {
		if m >= node.Start && m < node.End {
			out = append(out, m)
		}
	}
	return out
}

// hierarchyLabels numbers the leaves of root left to right from 1 and
// labels the points they cover. Points outside every leaf are Noise.
func hierarchyLabels(root *TreeNode, ordering []int, core []float64, buildEps float64) (labels []int, isCore []bool, nClusters int) {
	labels = make([]int, len(ordering))
	isCore = make([]bool, len(ordering))
	for i := range labels {
		labels[i] = Noise
	}
	for id, leaf := range root.Leaves() {
		for pos := leaf.Start; pos < leaf.End; pos++ {
			p := ordering[pos]
			labels[p] = id + 1
			isCore[p] = core[p] <= buildEps
		}
		nClusters = id + 1
	}
	return labels, isCore, nClusters
}
