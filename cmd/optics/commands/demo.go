package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TrevorS/optics/internal/dataset"
)

var (
	demoBlobs   int
	demoN       int
	demoStd     float64
	demoSpacing float64
	demoSeed    uint64
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Cluster synthetic Gaussian blobs",
	Long: `Generate --blobs isotropic Gaussian blobs in two dimensions, fit them and
print how many clusters were found.

Examples:
  optics demo --blobs 3 --n 750 --eps 0.3 --min-samples 10 --plot demo.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := resolveSettings(cmd)
		if err != nil {
			return err
		}
		if demoBlobs < 1 || demoN < demoBlobs {
			return fmt.Errorf("need at least one point per blob, got --blobs %d --n %d", demoBlobs, demoN)
		}

		centers := dataset.LineCenters(demoBlobs, 2, demoSpacing)
		blobs := dataset.MakeBlobs(centers, demoN/demoBlobs, demoStd, demoSeed)

		run, err := fit(blobs.Points, settings.cfg)
		if err != nil {
			return err
		}
		res, err := run.Result()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "generated:     %d blobs, %d points\n", demoBlobs, len(blobs.Points))
		return finish(cmd.OutOrStdout(), res, nil)
	},
}

func init() {
	demoCmd.Flags().IntVar(&demoBlobs, "blobs", 3, "number of blobs")
	demoCmd.Flags().IntVar(&demoN, "n", 750, "total number of points")
	demoCmd.Flags().Float64Var(&demoStd, "std", 0.2, "blob standard deviation")
	demoCmd.Flags().Float64Var(&demoSpacing, "spacing", 5, "distance between blob centers per axis")
	demoCmd.Flags().Uint64Var(&demoSeed, "seed", 1, "random seed")
}
