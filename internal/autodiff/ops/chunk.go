package ops

import "github.com/esim-ml/esim/internal/tensor"

// ChunkOp represents a split of a tensor into n equal parts along a
// dimension. It is the only multi-output operation on the tape: the
// recurrent encoders chunk their input into per-timestep slices, and
// every slice can receive its own gradient.
//
// Backward pass: concatenate the per-output gradients back along the
// split dimension. Outputs that received no gradient contribute zeros.
type ChunkOp struct {
	input   *tensor.RawTensor
	outputs []*tensor.RawTensor
	dim     int
}

// NewChunkOp creates a new ChunkOp.
func NewChunkOp(input *tensor.RawTensor, outputs []*tensor.RawTensor, dim int) *ChunkOp {
	ndim := len(input.Shape())
	if dim < 0 {
		dim = ndim + dim
	}
	return &ChunkOp{
		input:   input,
		outputs: outputs,
		dim:     dim,
	}
}

// Backward is not used for multi-output operations; the tape calls
// BackwardMulti instead.
func (op *ChunkOp) Backward(_ *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	panic("chunk: use BackwardMulti for multi-output operations")
}

// BackwardMulti concatenates the output gradients back along the split
// dimension.
func (op *ChunkOp) BackwardMulti(outputGrads []*tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grads := make([]*tensor.RawTensor, len(outputGrads))
	for i, g := range outputGrads {
		if g == nil {
			g = fullLike(op.outputs[i], 0)
		}
		grads[i] = g
	}

	inputGrad := backend.Cat(grads, op.dim)

	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns the input tensors.
func (op *ChunkOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the first output tensor.
func (op *ChunkOp) Output() *tensor.RawTensor {
	return op.outputs[0]
}

// Outputs returns all output tensors.
func (op *ChunkOp) Outputs() []*tensor.RawTensor {
	return op.outputs
}
