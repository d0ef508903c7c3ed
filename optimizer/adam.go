package optimizer

import (
	"math"

	"github.com/vitlab/facevit/tensor"
)

// Adam implements the Adam update rule with bias-corrected first and second
// moments and optional decoupled L2 weight decay.
//
//	m_t = beta1*m + (1-beta1)*g
//	v_t = beta2*v + (1-beta2)*g^2
//	param -= lr * (m_t/(1-beta1^t)) / (sqrt(v_t/(1-beta2^t)) + eps)
type Adam struct {
	beta1       float64
	beta2       float64
	epsilon     float64
	weightDecay float64

	m []*tensor.Tensor
	v []*tensor.Tensor
	t int
}

// AdamConfig holds Adam hyperparameters.
type AdamConfig struct {
	Beta1       float64
	Beta2       float64
	Epsilon     float64
	WeightDecay float64
}

// DefaultAdamConfig returns the standard transformer settings.
func DefaultAdamConfig() AdamConfig {
	return AdamConfig{
		Beta1:   0.9,
		Beta2:   0.999,
		Epsilon: 1e-8,
	}
}

// NewAdam creates an Adam optimizer with moment state matching params.
func NewAdam(params []*tensor.Tensor, config AdamConfig) *Adam {
	m := make([]*tensor.Tensor, len(params))
	v := make([]*tensor.Tensor, len(params))
	for i, p := range params {
		m[i] = tensor.New(p.Shape()...)
		v[i] = tensor.New(p.Shape()...)
	}
	return &Adam{
		beta1:       config.Beta1,
		beta2:       config.Beta2,
		epsilon:     config.Epsilon,
		weightDecay: config.WeightDecay,
		m:           m,
		v:           v,
	}
}

// Step performs one Adam update.
func (opt *Adam) Step(params []*tensor.Tensor, lr float64) {
	opt.t++
	bias1 := 1.0 - math.Pow(opt.beta1, float64(opt.t))
	bias2 := 1.0 - math.Pow(opt.beta2, float64(opt.t))

	for i, p := range params {
		data := p.Data()
		grad := p.Grad()
		mData := opt.m[i].Data()
		vData := opt.v[i].Data()

		for j := range data {
			g := grad[j] + opt.weightDecay*data[j]

			mData[j] = opt.beta1*mData[j] + (1.0-opt.beta1)*g
			vData[j] = opt.beta2*vData[j] + (1.0-opt.beta2)*g*g

			mHat := mData[j] / bias1
			vHat := vData[j] / bias2

			data[j] -= lr * mHat / (math.Sqrt(vHat) + opt.epsilon)
		}
	}
}

// ZeroGrad clears all parameter gradients.
func (opt *Adam) ZeroGrad(params []*tensor.Tensor) {
	zeroGrads(params)
}
