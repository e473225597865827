package ops

import (
	"fmt"

	"github.com/esim-ml/esim/internal/tensor"
)

// CatOp represents a concatenation of tensors along a dimension.
//
// Backward pass: the output gradient is sliced back along the same
// dimension, one slice per input, using the recorded input sizes.
type CatOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	dim    int   // normalized concat dimension
	sizes  []int // size of each input along dim
}

// NewCatOp creates a new CatOp.
func NewCatOp(inputs []*tensor.RawTensor, output *tensor.RawTensor, dim int) *CatOp {
	ndim := len(output.Shape())
	if dim < 0 {
		dim = ndim + dim
	}

	sizes := make([]int, len(inputs))
	for i, in := range inputs {
		sizes[i] = in.Shape()[dim]
	}

	return &CatOp{
		inputs: inputs,
		output: output,
		dim:    dim,
		sizes:  sizes,
	}
}

// Backward slices the output gradient back into per-input gradients.
func (op *CatOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grads := make([]*tensor.RawTensor, len(op.inputs))

	offset := 0
	for i, in := range op.inputs {
		grad, err := tensor.NewRaw(in.Shape(), in.DType(), backend.Device())
		if err != nil {
			panic(fmt.Sprintf("cat: failed to create gradient: %v", err))
		}

		sliceAlongDim(grad, outputGrad, op.dim, offset)
		grads[i] = grad
		offset += op.sizes[i]
	}

	return grads
}

// Inputs returns the input tensors.
func (op *CatOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor.
func (op *CatOp) Output() *tensor.RawTensor {
	return op.output
}

// sliceAlongDim copies a slice of src (starting at offset along dim, with
// dst's extent) into dst.
func sliceAlongDim(dst, src *tensor.RawTensor, dim, offset int) {
	if dst.DType() != tensor.Float32 {
		panic(fmt.Sprintf("cat: unsupported dtype %s", dst.DType()))
	}

	dstShape := dst.Shape()
	dstStrides := dstShape.ComputeStrides()
	srcStrides := src.Shape().ComputeStrides()
	numElements := dstShape.NumElements()

	d := dst.AsFloat32()
	s := src.AsFloat32()

	for i := 0; i < numElements; i++ {
		temp := i
		srcIdx := 0
		for k := 0; k < len(dstShape); k++ {
			coord := temp / dstStrides[k]
			temp %= dstStrides[k]

			if k == dim {
				coord += offset
			}
			srcIdx += coord * srcStrides[k]
		}

		d[i] = s[srcIdx]
	}
}
