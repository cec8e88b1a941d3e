package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile    string
	inputFile  string
	outputFile string
	columns    string
	verbose    bool

	eps        float64
	minSamples int
	epsScale   float64
	metricName string
	minkowskiP float64
	indexName  string
	leafSize   int
	workers    int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "optics",
	Short: "OPTICS density-based clustering",
	Long: `optics orders a point set by density reachability and extracts clusters
from the ordering, either flat (DBSCAN-equivalent) or as a cluster tree.

Points are read from a CSV file; --cols selects the coordinate columns.
Settings may also come from a YAML file given with --config; flags win.

Examples:
  # Flat clusters at eps 0.3
  optics fit -f points.csv --cols 0:1 --eps 0.3 --min-samples 10 -o labels.csv

  # Re-extract a finer partition from the same ordering
  optics extract -f points.csv --eps 0.3 --eps-prime 0.2

  # Cluster tree with a reachability plot
  optics hierarchy -f points.csv --tree tree.yaml --plot rplot.png
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML config file")
	pf.StringVarP(&inputFile, "file", "f", "", "input CSV file")
	pf.StringVarP(&outputFile, "output", "o", "", "labels CSV output file (default: stdout summary only)")
	pf.StringVar(&columns, "cols", "0:1", "inclusive column range start:end")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	pf.Float64Var(&eps, "eps", 0.5, "extraction threshold used by fit")
	pf.IntVar(&minSamples, "min-samples", 5, "neighbors (self included) required for a core point")
	pf.Float64Var(&epsScale, "eps-scale", 5, "build threshold multiplier")
	pf.StringVar(&metricName, "metric", "euclidean", "euclidean, manhattan, chebyshev, minkowski or cosine")
	pf.Float64Var(&minkowskiP, "p", 2, "Minkowski power")
	pf.StringVar(&indexName, "index", "auto", "auto, ball_tree, kd_tree or brute")
	pf.IntVar(&leafSize, "leaf-size", 40, "spatial tree leaf size")
	pf.IntVar(&workers, "workers", 0, "core-distance workers (0 = all CPUs)")

	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(hierarchyCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(versionCmd)
}

func initLogging() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))
}
