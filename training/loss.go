package training

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/vitlab/facevit/tensor"
)

// CrossEntropy computes the mean softmax cross-entropy loss over a batch.
// logits: (batch, numClasses), targets: batch class labels.
func CrossEntropy(logits *tensor.Tensor, targets []int32) float64 {
	batch, classes := logits.Dim(0), logits.Dim(1)
	if len(targets) != batch {
		panic(fmt.Sprintf("training: %d targets for batch of %d", len(targets), batch))
	}

	total := 0.0
	for b := 0; b < batch; b++ {
		row := logits.Data()[b*classes : (b+1)*classes]
		total += floats.LogSumExp(row) - row[targets[b]]
	}
	return total / float64(batch)
}

// CrossEntropyBackward computes the gradient of the mean cross-entropy loss
// with respect to the logits: (softmax(logits) - onehot(targets)) / batch.
func CrossEntropyBackward(logits *tensor.Tensor, targets []int32) *tensor.Tensor {
	batch, classes := logits.Dim(0), logits.Dim(1)
	if len(targets) != batch {
		panic(fmt.Sprintf("training: %d targets for batch of %d", len(targets), batch))
	}

	grad := tensor.Softmax(logits)
	inv := 1.0 / float64(batch)
	for b := 0; b < batch; b++ {
		row := grad.Data()[b*classes : (b+1)*classes]
		row[targets[b]] -= 1.0
		for j := range row {
			row[j] *= inv
		}
	}
	return grad
}

// Accuracy returns the fraction of rows whose argmax logit matches the
// target label.
func Accuracy(logits *tensor.Tensor, targets []int32) float64 {
	batch, classes := logits.Dim(0), logits.Dim(1)
	if len(targets) != batch {
		panic(fmt.Sprintf("training: %d targets for batch of %d", len(targets), batch))
	}

	correct := 0
	for b := 0; b < batch; b++ {
		row := logits.Data()[b*classes : (b+1)*classes]
		if int32(floats.MaxIdx(row)) == targets[b] {
			correct++
		}
	}
	return float64(correct) / float64(batch)
}

// Predictions returns the argmax class for every row of logits.
func Predictions(logits *tensor.Tensor) []int {
	batch, classes := logits.Dim(0), logits.Dim(1)
	preds := make([]int, batch)
	for b := 0; b < batch; b++ {
		preds[b] = floats.MaxIdx(logits.Data()[b*classes : (b+1)*classes])
	}
	return preds
}
