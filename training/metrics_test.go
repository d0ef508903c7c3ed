package training

import (
	"math"
	"strings"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestConfusionMatrixMetrics(t *testing.T) {
	cm := NewConfusionMatrix(2)
	for i := 0; i < 3; i++ {
		cm.Add(0, 0)
	}
	cm.Add(0, 1)
	cm.Add(1, 1)
	cm.Add(1, 1)
	cm.Add(1, 0)
	cm.Add(1, 0)

	if cm.Total != 8 {
		t.Fatalf("Total = %d, want 8", cm.Total)
	}
	if got := cm.Accuracy(); !almostEqual(got, 5.0/8.0) {
		t.Errorf("Accuracy = %v, want %v", got, 5.0/8.0)
	}
	if got := cm.Precision(0); !almostEqual(got, 3.0/5.0) {
		t.Errorf("Precision(0) = %v, want %v", got, 3.0/5.0)
	}
	if got := cm.Recall(0); !almostEqual(got, 3.0/4.0) {
		t.Errorf("Recall(0) = %v, want %v", got, 3.0/4.0)
	}
	if got := cm.Precision(1); !almostEqual(got, 2.0/3.0) {
		t.Errorf("Precision(1) = %v, want %v", got, 2.0/3.0)
	}
	if got := cm.Recall(1); !almostEqual(got, 0.5) {
		t.Errorf("Recall(1) = %v, want 0.5", got)
	}

	f10 := 2 * (3.0 / 5.0) * (3.0 / 4.0) / (3.0/5.0 + 3.0/4.0)
	if got := cm.F1(0); !almostEqual(got, f10) {
		t.Errorf("F1(0) = %v, want %v", got, f10)
	}
	f11 := 2 * (2.0 / 3.0) * 0.5 / (2.0/3.0 + 0.5)
	if got := cm.MacroF1(); !almostEqual(got, (f10+f11)/2) {
		t.Errorf("MacroF1 = %v, want %v", got, (f10+f11)/2)
	}
}

func TestConfusionMatrixEmptyClasses(t *testing.T) {
	cm := NewConfusionMatrix(3)
	cm.Add(0, 0)

	// Class 2 never appears as truth or prediction.
	if cm.Precision(2) != 0 || cm.Recall(2) != 0 || cm.F1(2) != 0 {
		t.Error("metrics for absent class should be 0")
	}
	if cm.Accuracy() != 1.0 {
		t.Errorf("Accuracy = %v, want 1.0", cm.Accuracy())
	}
}

func TestConfusionMatrixReset(t *testing.T) {
	cm := NewConfusionMatrix(2)
	cm.Add(0, 1)
	cm.Add(1, 1)
	cm.Reset()

	if cm.Total != 0 {
		t.Errorf("Total after Reset = %d, want 0", cm.Total)
	}
	for i := range cm.Matrix {
		for j := range cm.Matrix[i] {
			if cm.Matrix[i][j] != 0 {
				t.Errorf("Matrix[%d][%d] = %d after Reset", i, j, cm.Matrix[i][j])
			}
		}
	}
}

func TestConfusionMatrixString(t *testing.T) {
	cm := NewConfusionMatrix(2)
	cm.Add(0, 0)
	cm.Add(1, 0)

	s := cm.String()
	if !strings.Contains(s, "2 samples") {
		t.Errorf("String missing sample count: %q", s)
	}
	if !strings.Contains(s, "precision") {
		t.Errorf("String missing per-class metrics: %q", s)
	}
}
