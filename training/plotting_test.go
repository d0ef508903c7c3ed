package training

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRenderLossCurves(t *testing.T) {
	h := NewHistory()
	for epoch := 0; epoch < 10; epoch++ {
		h.RecordEpoch(2.0-0.1*float64(epoch), 0.1*float64(epoch))
	}
	h.RecordValidation(0, 1.9, 0.1)
	h.RecordValidation(5, 1.4, 0.4)

	path := filepath.Join(t.TempDir(), "loss.png")
	if err := RenderLossCurves(h, path); err != nil {
		t.Fatalf("RenderLossCurves failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot file not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestRenderLossCurvesEmptyHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loss.png")
	if err := RenderLossCurves(NewHistory(), path); err == nil {
		t.Error("expected error for empty history")
	}
}

func TestRenderLossCurvesBadPath(t *testing.T) {
	h := NewHistory()
	h.RecordEpoch(1.0, 0.5)

	err := RenderLossCurves(h, filepath.Join(t.TempDir(), "missing", "loss.png"))
	if err == nil {
		t.Error("expected error for unwritable path")
	}
}
