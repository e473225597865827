package tensor

import "fmt"

// Shape is the dimension list of a tensor, outermost dimension first.
type Shape []int

// NumElements returns the element count; a scalar shape counts as one.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate rejects shapes containing non-positive dimensions.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("shape: dimension %d must be positive, got %d", i, dim)
		}
	}
	return nil
}

// Equal reports whether both shapes have identical dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides returns row-major strides: strides[i] is the flat-index
// distance between neighbors along dimension i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	stride := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= s[i]
	}
	return strides
}

// BroadcastShapes resolves two shapes under numpy-style broadcasting:
// dimensions are aligned from the right, each pair must match or contain
// a 1, and missing leading dimensions count as 1.
//
// Returns the result shape and whether any dimension needs stretching
// (false means the shapes already agree, so kernels may take an
// element-for-element path). Incompatible shapes return an error.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	n := max(len(a), len(b))
	result := make(Shape, n)
	stretched := false

	for i := 1; i <= n; i++ {
		aDim, bDim := 1, 1
		if i <= len(a) {
			aDim = a[len(a)-i]
		}
		if i <= len(b) {
			bDim = b[len(b)-i]
		}

		switch {
		case aDim == bDim:
			result[n-i] = aDim
		case aDim == 1:
			result[n-i] = bDim
			stretched = true
		case bDim == 1:
			result[n-i] = aDim
			stretched = true
		default:
			return nil, false, fmt.Errorf("shape: cannot broadcast %v with %v (dimension %d: %d vs %d)",
				a, b, n-i, aDim, bDim)
		}
	}

	return result, stretched, nil
}
