package cpu

import (
	"fmt"
	"math"

	"github.com/esim-ml/esim/internal/tensor"
)

// Rsqrt computes element-wise reciprocal square root: 1/sqrt(x).
func (cpu *CPUBackend) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("rsqrt: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		for i, v := range src {
			if v <= 0 {
				panic(fmt.Sprintf("rsqrt: non-positive value at index %d: %f", i, v))
			}
			dst[i] = float32(1 / math.Sqrt(float64(v)))
		}
	default:
		panic(fmt.Sprintf("rsqrt: unsupported dtype %s (only float32 supported)", x.DType()))
	}

	return result
}
