package tensor

import "math"

// Backward counterparts of the forward operations. Each takes the upstream
// gradient and whatever forward values the derivative needs, and returns the
// downstream gradients. The model's backward pass chains these together and
// accumulates parameter gradients with AccumulateGrad.

// MatMulBackward computes gradients for C = A @ B.
//
//	gradA = gradC @ B^T
//	gradB = A^T @ gradC
func MatMulBackward(a, b, gradC *Tensor) (gradA, gradB *Tensor) {
	gradA = MatMul(gradC, Transpose(b))
	gradB = MatMul(Transpose(a), gradC)
	return gradA, gradB
}

// GELUBackward computes the gradient of GELU at x given the upstream
// gradient, using the analytic derivative of the tanh approximation.
func GELUBackward(x, gradY *Tensor) *Tensor {
	const (
		sqrt2OverPi = 0.7978845608028654
		coeff       = 0.044715
	)
	gradX := New(x.shape...)
	for i, v := range x.data {
		inner := sqrt2OverPi * (v + coeff*v*v*v)
		tanhInner := math.Tanh(inner)
		sech2 := 1.0 - tanhInner*tanhInner
		innerDeriv := sqrt2OverPi * (1.0 + 3.0*coeff*v*v)
		deriv := 0.5*(1.0+tanhInner) + 0.5*v*sech2*innerDeriv
		gradX.data[i] = gradY.data[i] * deriv
	}
	return gradX
}

// SoftmaxBackward computes the gradient through a row-wise softmax given the
// softmax output y and the upstream gradient.
//
// For each row: gradX[i] = y[i] * (gradY[i] - sum_j gradY[j]*y[j]).
func SoftmaxBackward(y, gradY *Tensor) *Tensor {
	if y.Dims() != 2 {
		panic("tensor: SoftmaxBackward requires a 2D tensor")
	}
	rows, cols := y.shape[0], y.shape[1]
	gradX := New(rows, cols)
	for i := 0; i < rows; i++ {
		yRow := y.data[i*cols : (i+1)*cols]
		gRow := gradY.data[i*cols : (i+1)*cols]
		dot := 0.0
		for j := range yRow {
			dot += gRow[j] * yRow[j]
		}
		outRow := gradX.data[i*cols : (i+1)*cols]
		for j := range yRow {
			outRow[j] = yRow[j] * (gRow[j] - dot)
		}
	}
	return gradX
}

// LayerNormBackward computes gradients for y = gamma*(x-mean)/std + beta,
// normalizing over the last dimension of a 2D input. Statistics are
// recomputed from x rather than cached.
func LayerNormBackward(x, gamma, gradY *Tensor, epsilon float64) (gradX, gradGamma, gradBeta *Tensor) {
	if x.Dims() != 2 {
		panic("tensor: LayerNormBackward requires a 2D tensor")
	}
	rows, features := x.shape[0], x.shape[1]
	gradX = New(rows, features)
	gradGamma = New(features)
	gradBeta = New(features)

	n := float64(features)
	for r := 0; r < rows; r++ {
		xRow := x.data[r*features : (r+1)*features]
		gRow := gradY.data[r*features : (r+1)*features]

		mean := 0.0
		for _, v := range xRow {
			mean += v
		}
		mean /= n

		variance := 0.0
		for _, v := range xRow {
			d := v - mean
			variance += d * d
		}
		variance /= n
		std := math.Sqrt(variance + epsilon)

		sumGrad := 0.0
		sumGradXNorm := 0.0
		for f := 0; f < features; f++ {
			xNorm := (xRow[f] - mean) / std
			gradGamma.data[f] += gRow[f] * xNorm
			gradBeta.data[f] += gRow[f]

			g := gRow[f] * gamma.data[f]
			sumGrad += g
			sumGradXNorm += g * xNorm
		}

		outRow := gradX.data[r*features : (r+1)*features]
		for f := 0; f < features; f++ {
			xNorm := (xRow[f] - mean) / std
			g := gRow[f] * gamma.data[f]
			outRow[f] = (n*g - sumGrad - xNorm*sumGradXNorm) / (n * std)
		}
	}
	return gradX, gradGamma, gradBeta
}
