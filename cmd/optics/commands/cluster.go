package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/TrevorS/optics"
	"github.com/TrevorS/optics/internal/dataset"
	"github.com/TrevorS/optics/internal/report"
)

var (
	plotFile string
	treeFile string
	epsPrime float64
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Build the ordering and extract flat clusters at --eps",
	RunE: func(cmd *cobra.Command, args []string) error {
		run, _, err := fitFromFlags(cmd)
		if err != nil {
			return err
		}
		res, err := run.Result()
		if err != nil {
			return err
		}
		return finish(cmd.OutOrStdout(), res, nil)
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Build the ordering, then extract flat clusters at --eps-prime",
	Long: `Build the ordering with --eps and re-extract at --eps-prime without new
neighbor queries. --eps-prime may not exceed eps * eps-scale.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		run, _, err := fitFromFlags(cmd)
		if err != nil {
			return err
		}
		ex, err := run.Extract(epsPrime)
		if err != nil {
			return err
		}
		for _, w := range ex.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", w)
		}
		res, err := run.Result()
		if err != nil {
			return err
		}
		return finish(cmd.OutOrStdout(), res, nil)
	},
}

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy",
	Short: "Build the ordering, then extract the cluster tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		run, settings, err := fitFromFlags(cmd)
		if err != nil {
			return err
		}
		h, err := run.ExtractHierarchy(settings.hierarchy)
		if err != nil {
			return err
		}
		if treeFile != "" {
			if err := writeFile(treeFile, func(w io.Writer) error {
				return report.WriteTreeYAML(w, h, true)
			}); err != nil {
				return err
			}
		}
		if verbose {
			if err := report.WriteTreeText(cmd.ErrOrStderr(), h.Root); err != nil {
				return err
			}
		}
		res, err := run.Result()
		if err != nil {
			return err
		}
		return finish(cmd.OutOrStdout(), res, h.Root)
	},
}

func init() {
	for _, c := range []*cobra.Command{fitCmd, extractCmd, hierarchyCmd, demoCmd} {
		c.Flags().StringVar(&plotFile, "plot", "", "write the reachability plot (png, svg, pdf)")
	}
	extractCmd.Flags().Float64Var(&epsPrime, "eps-prime", 0, "extraction threshold")
	_ = extractCmd.MarkFlagRequired("eps-prime")
	hierarchyCmd.Flags().StringVar(&treeFile, "tree", "", "write the cluster tree as YAML")
}

// fitFromFlags loads the input named by the flags and fits it.
func fitFromFlags(cmd *cobra.Command) (*optics.OPTICS, runSettings, error) {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return nil, settings, err
	}
	if inputFile == "" {
		return nil, settings, errors.New("no input file, use -f")
	}
	cols, err := dataset.ParseColumns(settings.columns)
	if err != nil {
		return nil, settings, err
	}
	points, err := dataset.ImportFile(inputFile, cols)
	if err != nil {
		return nil, settings, err
	}
	slog.Debug("points loaded", "file", inputFile, "points", len(points), "columns", settings.columns)

	run, err := fit(points, settings.cfg)
	return run, settings, err
}

func fit(points [][]float64, cfg optics.Config) (*optics.OPTICS, error) {
	run, err := optics.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := run.Fit(points); err != nil {
		return nil, err
	}
	return run, nil
}

// finish writes the optional outputs and prints a summary.
func finish(out io.Writer, res *optics.Result, root *optics.TreeNode) error {
	if outputFile != "" {
		if err := writeFile(outputFile, func(w io.Writer) error {
			return report.WriteLabelsCSV(w, res)
		}); err != nil {
			return err
		}
	}
	if plotFile != "" {
		rplot := make([]float64, len(res.Ordering))
		for pos, p := range res.Ordering {
			rplot[pos] = res.Reachability[p]
		}
		p, err := report.ReachabilityPlot(rplot, root)
		if err != nil {
			return err
		}
		if err := report.SavePlot(p, plotFile); err != nil {
			return err
		}
	}
	printSummary(out, res)
	return nil
}

func printSummary(w io.Writer, res *optics.Result) {
	var noise int
	for _, l := range res.Labels {
		if l == optics.Noise {
			noise++
		}
	}
	var finite []float64
	for _, c := range res.CoreDistances {
		if !math.IsInf(c, 0) {
			finite = append(finite, c)
		}
	}

	fmt.Fprintf(w, "points:        %d\n", len(res.Labels))
	fmt.Fprintf(w, "index:         %s\n", res.Index)
	fmt.Fprintf(w, "build eps:     %g\n", res.BuildEps)
	fmt.Fprintf(w, "clusters:      %d\n", res.NClusters)
	fmt.Fprintf(w, "noise:         %d\n", noise)
	fmt.Fprintf(w, "core samples:  %d\n", len(res.CoreSampleIndices))
	if len(finite) > 0 {
		fmt.Fprintf(w, "mean core dist: %.4g\n", stat.Mean(finite, nil))
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
