package training

import (
	"fmt"
	"strings"
)

// ConfusionMatrix tallies classification results per (true, predicted) class
// pair and derives per-class metrics from the counts.
type ConfusionMatrix struct {
	NumClasses int
	Matrix     [][]int // [true class][predicted class]
	Total      int
}

// NewConfusionMatrix creates an empty confusion matrix for numClasses.
func NewConfusionMatrix(numClasses int) *ConfusionMatrix {
	matrix := make([][]int, numClasses)
	for i := range matrix {
		matrix[i] = make([]int, numClasses)
	}
	return &ConfusionMatrix{
		NumClasses: numClasses,
		Matrix:     matrix,
	}
}

// Add records one prediction.
func (cm *ConfusionMatrix) Add(trueClass, predClass int) {
	cm.Matrix[trueClass][predClass]++
	cm.Total++
}

// Reset clears all counts.
func (cm *ConfusionMatrix) Reset() {
	for i := range cm.Matrix {
		for j := range cm.Matrix[i] {
			cm.Matrix[i][j] = 0
		}
	}
	cm.Total = 0
}

// Accuracy returns the overall fraction of correct predictions.
func (cm *ConfusionMatrix) Accuracy() float64 {
	if cm.Total == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < cm.NumClasses; i++ {
		correct += cm.Matrix[i][i]
	}
	return float64(correct) / float64(cm.Total)
}

// Precision returns TP / (TP + FP) for the given class.
func (cm *ConfusionMatrix) Precision(class int) float64 {
	tp := cm.Matrix[class][class]
	predicted := 0
	for i := 0; i < cm.NumClasses; i++ {
		predicted += cm.Matrix[i][class]
	}
	if predicted == 0 {
		return 0
	}
	return float64(tp) / float64(predicted)
}

// Recall returns TP / (TP + FN) for the given class.
func (cm *ConfusionMatrix) Recall(class int) float64 {
	tp := cm.Matrix[class][class]
	actual := 0
	for j := 0; j < cm.NumClasses; j++ {
		actual += cm.Matrix[class][j]
	}
	if actual == 0 {
		return 0
	}
	return float64(tp) / float64(actual)
}

// F1 returns the harmonic mean of precision and recall for the given class.
func (cm *ConfusionMatrix) F1(class int) float64 {
	p := cm.Precision(class)
	r := cm.Recall(class)
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// MacroF1 returns the unweighted mean F1 across classes.
func (cm *ConfusionMatrix) MacroF1() float64 {
	if cm.NumClasses == 0 {
		return 0
	}
	sum := 0.0
	for c := 0; c < cm.NumClasses; c++ {
		sum += cm.F1(c)
	}
	return sum / float64(cm.NumClasses)
}

// String renders the matrix with per-class metrics.
func (cm *ConfusionMatrix) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Confusion matrix (%d samples):\n", cm.Total))
	for i, row := range cm.Matrix {
		sb.WriteString(fmt.Sprintf("  true %d: %v\n", i, row))
	}
	for c := 0; c < cm.NumClasses; c++ {
		sb.WriteString(fmt.Sprintf("  class %d: precision %.3f recall %.3f f1 %.3f\n",
			c, cm.Precision(c), cm.Recall(c), cm.F1(c)))
	}
	return sb.String()
}
