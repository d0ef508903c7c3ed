package optimizer

import "github.com/vitlab/facevit/tensor"

// SGD implements plain stochastic gradient descent with optional L2 weight
// decay: param -= lr * (grad + weightDecay*param).
type SGD struct {
	weightDecay float64
}

// NewSGD creates an SGD optimizer.
func NewSGD(weightDecay float64) *SGD {
	return &SGD{weightDecay: weightDecay}
}

// Step performs one SGD update.
func (opt *SGD) Step(params []*tensor.Tensor, lr float64) {
	for _, p := range params {
		data := p.Data()
		grad := p.Grad()
		for i := range data {
			data[i] -= lr * (grad[i] + opt.weightDecay*data[i])
		}
	}
}

// ZeroGrad clears all parameter gradients.
func (opt *SGD) ZeroGrad(params []*tensor.Tensor) {
	zeroGrads(params)
}
