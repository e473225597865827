package ops

import (
	"fmt"

	"github.com/esim-ml/esim/internal/tensor"
)

// EmbeddingOp represents an embedding lookup: output[i] = weight[indices[i]].
//
// Backward pass: scatter-add rows of the output gradient into the weight
// gradient at the looked-up indices. Indices are integers and receive no
// gradient, so only the weight appears in Inputs.
type EmbeddingOp struct {
	weight  *tensor.RawTensor // [vocabSize, embedDim]
	indices *tensor.RawTensor // int32
	output  *tensor.RawTensor
}

// NewEmbeddingOp creates a new EmbeddingOp.
func NewEmbeddingOp(weight, indices, output *tensor.RawTensor) *EmbeddingOp {
	return &EmbeddingOp{
		weight:  weight,
		indices: indices,
		output:  output,
	}
}

// Backward scatter-adds the output gradient into a zeroed weight gradient.
func (op *EmbeddingOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradWeight, err := tensor.NewRaw(op.weight.Shape(), tensor.Float32, backend.Device())
	if err != nil {
		panic(fmt.Sprintf("embedding: failed to create gradient: %v", err))
	}

	gw := gradWeight.AsFloat32()
	for i := range gw {
		gw[i] = 0
	}

	embedDim := op.weight.Shape()[1]
	indices := op.indices.AsInt32()
	g := outputGrad.AsFloat32()

	// Repeated indices accumulate, matching the lookup semantics.
	for i, idx := range indices {
		dstBase := int(idx) * embedDim
		srcBase := i * embedDim
		for j := 0; j < embedDim; j++ {
			gw[dstBase+j] += g[srcBase+j]
		}
	}

	return []*tensor.RawTensor{gradWeight}
}

// Inputs returns the differentiable inputs [weight]. Indices are not
// differentiable.
func (op *EmbeddingOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.weight}
}

// Output returns the output tensor.
func (op *EmbeddingOp) Output() *tensor.RawTensor {
	return op.output
}
