// Package optimizer provides gradient-descent parameter update rules.
// Optimizers mutate parameter tensors in place using the gradients that the
// model's backward pass accumulated.
package optimizer

import "github.com/vitlab/facevit/tensor"

// Optimizer applies one update step to a parameter set. Implementations that
// keep per-parameter state (Adam's moments) are bound to the parameter slice
// they were constructed with; callers must pass the same slice, in the same
// order, to every Step call.
type Optimizer interface {
	// Step updates parameters in place using their accumulated gradients.
	Step(params []*tensor.Tensor, lr float64)

	// ZeroGrad clears all parameter gradients.
	ZeroGrad(params []*tensor.Tensor)
}

func zeroGrads(params []*tensor.Tensor) {
	for _, p := range params {
		p.ZeroGrad()
	}
}
