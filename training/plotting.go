package training

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// RenderLossCurves writes a PNG plotting the per-epoch training loss against
// the per-validation-pass test loss. Validation points sit at their true
// epoch index, so a validation interval of k spaces them k epochs apart.
func RenderLossCurves(h *History, path string) error {
	if h.Epochs() == 0 {
		return fmt.Errorf("no training history to plot")
	}

	p := plot.New()
	p.Title.Text = "Training and validation loss"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"

	trainXY := make(plotter.XYs, len(h.TrainLoss))
	for i, loss := range h.TrainLoss {
		trainXY[i].X = float64(i)
		trainXY[i].Y = loss
	}

	valXY := make(plotter.XYs, len(h.ValLoss))
	for i, loss := range h.ValLoss {
		valXY[i].X = float64(h.ValEpochs[i])
		valXY[i].Y = loss
	}

	if err := plotutil.AddLinePoints(p, "train", trainXY, "test", valXY); err != nil {
		return fmt.Errorf("failed to add loss series: %w", err)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save loss plot: %w", err)
	}
	return nil
}
