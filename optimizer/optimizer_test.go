package optimizer

import (
	"math"
	"testing"

	"github.com/vitlab/facevit/tensor"
)

func quadraticParams() []*tensor.Tensor {
	p := tensor.New(3)
	for i := range p.Data() {
		p.Data()[i] = float64(i + 1)
	}
	return []*tensor.Tensor{p}
}

// setQuadraticGrad sets grad = 2*param, the gradient of sum(param^2).
func setQuadraticGrad(params []*tensor.Tensor) {
	for _, p := range params {
		for i, v := range p.Data() {
			p.Grad()[i] = 2 * v
		}
	}
}

func sumSquares(params []*tensor.Tensor) float64 {
	total := 0.0
	for _, p := range params {
		for _, v := range p.Data() {
			total += v * v
		}
	}
	return total
}

func TestSGDStep(t *testing.T) {
	params := quadraticParams()
	opt := NewSGD(0)

	setQuadraticGrad(params)
	opt.Step(params, 0.1)

	// param = param - 0.1*2*param = 0.8*param
	want := []float64{0.8, 1.6, 2.4}
	for i, v := range params[0].Data() {
		if math.Abs(v-want[i]) > 1e-12 {
			t.Errorf("param[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestSGDWeightDecay(t *testing.T) {
	params := quadraticParams()
	opt := NewSGD(0.5)

	// No loss gradient: only decay should shrink the weights.
	opt.Step(params, 0.1)
	want := []float64{0.95, 1.9, 2.85}
	for i, v := range params[0].Data() {
		if math.Abs(v-want[i]) > 1e-12 {
			t.Errorf("param[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	params := quadraticParams()
	opt := NewAdam(params, DefaultAdamConfig())

	initial := sumSquares(params)
	for step := 0; step < 500; step++ {
		opt.ZeroGrad(params)
		setQuadraticGrad(params)
		opt.Step(params, 0.05)
	}

	final := sumSquares(params)
	if final >= initial/10 {
		t.Errorf("Adam failed to minimize quadratic: %v -> %v", initial, final)
	}
}

func TestAdamFirstStepMagnitude(t *testing.T) {
	// With bias correction, the first Adam step is approximately lr in the
	// gradient direction regardless of gradient magnitude.
	params := quadraticParams()
	before := append([]float64(nil), params[0].Data()...)

	opt := NewAdam(params, DefaultAdamConfig())
	setQuadraticGrad(params)
	opt.Step(params, 0.01)

	for i, v := range params[0].Data() {
		step := before[i] - v
		if math.Abs(step-0.01) > 1e-6 {
			t.Errorf("first step for param %d = %v, want ~0.01", i, step)
		}
	}
}

func TestZeroGrad(t *testing.T) {
	params := quadraticParams()
	setQuadraticGrad(params)

	for _, opt := range []Optimizer{NewSGD(0), NewAdam(params, DefaultAdamConfig())} {
		setQuadraticGrad(params)
		opt.ZeroGrad(params)
		for i, g := range params[0].Grad() {
			if g != 0 {
				t.Errorf("grad[%d] = %v after ZeroGrad", i, g)
			}
		}
	}
}
