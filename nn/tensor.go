package nn

// Numeric covers the element types tensors can hold.
type Numeric interface {
	~float32 | ~float64 | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Tensor is a flat, row-major buffer with shape metadata.
type Tensor[T Numeric] struct {
	Data    []T
	Shape   []int
	Strides []int
}

// NewTensor creates a zeroed tensor with the given shape.
// A single dimension produces a flat vector.
func NewTensor[T Numeric](shape ...int) *Tensor[T] {
	size := 1
	for _, dim := range shape {
		if dim < 0 {
			dim = 0
		}
		size *= dim
	}

	return &Tensor[T]{
		Data:    make([]T, size),
		Shape:   append([]int(nil), shape...),
		Strides: stridesFor(shape),
	}
}

// NewTensorFromSlice wraps existing data in a tensor. The data is NOT copied.
func NewTensorFromSlice[T Numeric](data []T, shape ...int) *Tensor[T] {
	return &Tensor[T]{
		Data:    data,
		Shape:   append([]int(nil), shape...),
		Strides: stridesFor(shape),
	}
}

func stridesFor(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

// Size returns the total number of elements.
func (t *Tensor[T]) Size() int {
	return len(t.Data)
}

// Clone returns a deep copy of the tensor.
func (t *Tensor[T]) Clone() *Tensor[T] {
	clone := &Tensor[T]{
		Data:    make([]T, len(t.Data)),
		Shape:   append([]int(nil), t.Shape...),
		Strides: append([]int(nil), t.Strides...),
	}
	copy(clone.Data, t.Data)
	return clone
}

// Reshape returns a view of the tensor with a new shape, sharing data.
// Returns nil if the element count does not match.
func (t *Tensor[T]) Reshape(shape ...int) *Tensor[T] {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	if size != len(t.Data) {
		return nil
	}

	return &Tensor[T]{
		Data:    t.Data,
		Shape:   append([]int(nil), shape...),
		Strides: stridesFor(shape),
	}
}
