package tensor

import (
	"fmt"
	"math/rand"
)

// Tensor is a dense, row-major float64 tensor with a gradient buffer of the
// same size. All trainable parameters and intermediate activations in the
// model are Tensors; gradients accumulate into the grad buffer during the
// backward pass and are consumed by the optimizer.
type Tensor struct {
	shape []int
	data  []float64
	grad  []float64
}

// New creates a zero-filled tensor with the given shape.
// Panics if any dimension is not positive; shapes are fixed at model
// construction time, so a bad shape is a programming error.
func New(shape ...int) *Tensor {
	n := checkShape(shape)
	return &Tensor{
		shape: append([]int(nil), shape...),
		data:  make([]float64, n),
		grad:  make([]float64, n),
	}
}

// NewRand creates a tensor with values drawn from a standard normal
// distribution. Callers scale the result for their initialization scheme.
func NewRand(shape ...int) *Tensor {
	t := New(shape...)
	for i := range t.data {
		t.data[i] = rand.NormFloat64()
	}
	return t
}

func checkShape(shape []int) int {
	if len(shape) == 0 {
		panic("tensor: empty shape")
	}
	n := 1
	for i, dim := range shape {
		if dim <= 0 {
			panic(fmt.Sprintf("tensor: dimension %d has size %d, must be positive", i, dim))
		}
		n *= dim
	}
	return n
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Dims returns the number of dimensions.
func (t *Tensor) Dims() int { return len(t.shape) }

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int { return t.shape[i] }

// Size returns the total number of elements.
func (t *Tensor) Size() int { return len(t.data) }

// Data returns the underlying value buffer. The slice is shared, not copied.
func (t *Tensor) Data() []float64 { return t.data }

// Grad returns the underlying gradient buffer. The slice is shared, not copied.
func (t *Tensor) Grad() []float64 { return t.grad }

func (t *Tensor) index(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d indices for %d-dimensional tensor", len(indices), len(t.shape)))
	}
	idx := 0
	stride := 1
	for i := len(t.shape) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dimension %d (size %d)", indices[i], i, t.shape[i]))
		}
		idx += indices[i] * stride
		stride *= t.shape[i]
	}
	return idx
}

// At returns the element at the given indices.
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.index(indices)]
}

// Set stores v at the given indices.
func (t *Tensor) Set(v float64, indices ...int) {
	t.data[t.index(indices)] = v
}

// Clone returns a deep copy of the tensor's values. The gradient buffer of
// the clone is zeroed.
func (t *Tensor) Clone() *Tensor {
	c := New(t.shape...)
	copy(c.data, t.data)
	return c
}

// Reshape returns a tensor viewing the same data and gradient buffers with a
// new shape. The element count must match.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	n := checkShape(shape)
	if n != len(t.data) {
		panic(fmt.Sprintf("tensor: cannot reshape %v (%d elements) to %v (%d elements)", t.shape, len(t.data), shape, n))
	}
	return &Tensor{
		shape: append([]int(nil), shape...),
		data:  t.data,
		grad:  t.grad,
	}
}

// ZeroGrad clears the gradient buffer.
func (t *Tensor) ZeroGrad() {
	for i := range t.grad {
		t.grad[i] = 0
	}
}

// AccumulateGrad adds grad's values into t's gradient buffer. Used when a
// parameter contributes to the loss through multiple paths.
func (t *Tensor) AccumulateGrad(grad *Tensor) {
	if !shapeEqual(t.shape, grad.shape) {
		panic(fmt.Sprintf("tensor: AccumulateGrad shape mismatch: %v vs %v", t.shape, grad.shape))
	}
	for i := range t.grad {
		t.grad[i] += grad.data[i]
	}
}

// String returns a short description of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, elements=%d)", t.shape, len(t.data))
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
