// Package report renders and exports OPTICS results.
package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/TrevorS/optics"
)

var spanColor = color.RGBA{R: 220, G: 30, B: 30, A: 255}

// PlotCeiling is the height used for infinite reachabilities: 10% above the
// largest finite value, or 1 if there is none.
func PlotCeiling(rplot []float64) float64 {
	var top float64
	for _, v := range rplot {
		if !math.IsInf(v, 0) && v > top {
			top = v
		}
	}
	if top == 0 {
		return 1
	}
	return top * 1.1
}

// ReachabilityPlot draws the reachability sequence as bars. If root is not
// nil, every tree node is drawn as a horizontal span above the bars, one
// row per tree level.
func ReachabilityPlot(rplot []float64, root *optics.TreeNode) (*plot.Plot, error) {
	ceiling := PlotCeiling(rplot)
	values := make(plotter.Values, len(rplot))
	for i, v := range rplot {
		if math.IsInf(v, 0) {
			v = ceiling
		}
		values[i] = v
	}

	p := plot.New()
	p.Title.Text = "Reachability Plot"
	p.X.Label.Text = "Ordering position"
	p.Y.Label.Text = "Reachability distance"

	if len(values) > 0 {
		bars, err := plotter.NewBarChart(values, vg.Points(1))
		if err != nil {
			return nil, fmt.Errorf("reachability bars: %w", err)
		}
		bars.LineStyle.Width = 0
		bars.Color = color.Gray{Y: 60}
		p.Add(bars)
	}

	if root == nil {
		return p, nil
	}

	var spanErr error
	root.Walk(func(node *optics.TreeNode, depth int) bool {
		y := ceiling * (1.3 - 0.05*float64(depth))
		line, err := plotter.NewLine(plotter.XYs{
			{X: float64(node.Start), Y: y},
			{X: float64(node.End), Y: y},
		})
		if err != nil {
			spanErr = fmt.Errorf("tree span %s: %w", node, err)
			return false
		}
		line.Color = spanColor
		line.Width = vg.Points(1)
		p.Add(line)
		return true
	})
	if spanErr != nil {
		return nil, spanErr
	}
	return p, nil
}

// SavePlot writes p to path; the format follows the file extension.
func SavePlot(p *plot.Plot, path string) error {
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save reachability plot: %w", err)
	}
	return nil
}
