package tensor

import (
	"fmt"
	"math"
)

// MatMul computes the matrix product of two 2D tensors.
// a: (m, k), b: (k, n) -> (m, n).
func MatMul(a, b *Tensor) *Tensor {
	if a.Dims() != 2 || b.Dims() != 2 {
		panic("tensor: MatMul requires 2D tensors")
	}
	m, k := a.shape[0], a.shape[1]
	k2, n := b.shape[0], b.shape[1]
	if k != k2 {
		panic(fmt.Sprintf("tensor: MatMul dimension mismatch: (%d,%d) x (%d,%d)", m, k, k2, n))
	}

	out := New(m, n)
	// i-k-j loop order keeps the inner loop sequential over both b and out.
	for i := 0; i < m; i++ {
		for l := 0; l < k; l++ {
			av := a.data[i*k+l]
			if av == 0 {
				continue
			}
			bRow := b.data[l*n : (l+1)*n]
			outRow := out.data[i*n : (i+1)*n]
			for j := range bRow {
				outRow[j] += av * bRow[j]
			}
		}
	}
	return out
}

// Transpose returns the transpose of a 2D tensor.
func Transpose(t *Tensor) *Tensor {
	if t.Dims() != 2 {
		panic("tensor: Transpose requires a 2D tensor")
	}
	rows, cols := t.shape[0], t.shape[1]
	out := New(cols, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.data[j*rows+i] = t.data[i*cols+j]
		}
	}
	return out
}

// Add returns the element-wise sum of two tensors of identical shape.
func Add(a, b *Tensor) *Tensor {
	if !shapeEqual(a.shape, b.shape) {
		panic(fmt.Sprintf("tensor: Add shape mismatch: %v vs %v", a.shape, b.shape))
	}
	out := New(a.shape...)
	for i := range out.data {
		out.data[i] = a.data[i] + b.data[i]
	}
	return out
}

// Scale returns the tensor multiplied by a scalar.
func Scale(t *Tensor, s float64) *Tensor {
	out := New(t.shape...)
	for i := range out.data {
		out.data[i] = t.data[i] * s
	}
	return out
}

// AddBias adds a 1D bias vector to every row of a 2D tensor.
// x: (rows, n), b: (n) -> (rows, n).
func AddBias(x, b *Tensor) *Tensor {
	if x.Dims() != 2 || b.Dims() != 1 {
		panic("tensor: AddBias requires a 2D input and 1D bias")
	}
	rows, n := x.shape[0], x.shape[1]
	if b.shape[0] != n {
		panic(fmt.Sprintf("tensor: AddBias dimension mismatch: %d columns vs %d bias elements", n, b.shape[0]))
	}
	out := New(rows, n)
	for i := 0; i < rows; i++ {
		for j := 0; j < n; j++ {
			out.data[i*n+j] = x.data[i*n+j] + b.data[j]
		}
	}
	return out
}

// Softmax applies a numerically stable row-wise softmax to a 2D tensor.
func Softmax(t *Tensor) *Tensor {
	if t.Dims() != 2 {
		panic("tensor: Softmax requires a 2D tensor")
	}
	rows, cols := t.shape[0], t.shape[1]
	out := New(rows, cols)
	for i := 0; i < rows; i++ {
		row := t.data[i*cols : (i+1)*cols]
		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		sum := 0.0
		outRow := out.data[i*cols : (i+1)*cols]
		for j, v := range row {
			e := math.Exp(v - maxVal)
			outRow[j] = e
			sum += e
		}
		for j := range outRow {
			outRow[j] /= sum
		}
	}
	return out
}

// GELU applies the Gaussian Error Linear Unit activation element-wise,
// using the tanh approximation from the original paper.
func GELU(t *Tensor) *Tensor {
	const (
		sqrt2OverPi = 0.7978845608028654
		coeff       = 0.044715
	)
	out := New(t.shape...)
	for i, v := range t.data {
		inner := sqrt2OverPi * (v + coeff*v*v*v)
		out.data[i] = 0.5 * v * (1.0 + math.Tanh(inner))
	}
	return out
}
