package cpu

import (
	"fmt"

	"github.com/esim-ml/esim/internal/tensor"
)

// BatchMatMul performs batched matrix multiplication for 3D tensors:
// [B, M, K] @ [B, K, N] -> [B, M, N]
//
// The last two dimensions are treated as matrix dimensions.
// The leading dimension is the batch and must match between inputs.
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 3 || len(bShape) != 3 {
		panic(fmt.Sprintf("batchmatmul: inputs must be 3D, got %dD and %dD", len(aShape), len(bShape)))
	}

	if aShape[0] != bShape[0] {
		panic(fmt.Sprintf("batchmatmul: batch dimension mismatch: %d vs %d", aShape[0], bShape[0]))
	}

	batchSize := aShape[0]
	m := aShape[1]
	k1 := aShape[2]
	k2 := bShape[1]
	n := bShape[2]

	if k1 != k2 {
		panic(fmt.Sprintf("batchmatmul: inner dimension mismatch: %d vs %d", k1, k2))
	}

	result, err := tensor.NewRaw(tensor.Shape{batchSize, m, n}, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("batchmatmul: failed to create result tensor: %v", err))
	}

	switch a.DType() {
	case tensor.Float32:
		batchMatmulFloat32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), batchSize, m, k1, n)
	default:
		panic(fmt.Sprintf("batchmatmul: unsupported dtype %s", a.DType()))
	}

	return result
}

// batchMatmulFloat32 runs SGEMM per batch slice.
func batchMatmulFloat32(c, a, b []float32, batchSize, m, k, n int) {
	matrixSizeA := m * k
	matrixSizeB := k * n
	matrixSizeC := m * n

	for batch := 0; batch < batchSize; batch++ {
		aOffset := batch * matrixSizeA
		bOffset := batch * matrixSizeB
		cOffset := batch * matrixSizeC

		gemmFloat32(
			c[cOffset:cOffset+matrixSizeC],
			a[aOffset:aOffset+matrixSizeA],
			b[bOffset:bOffset+matrixSizeB],
			m, k, n,
		)
	}
}
