package nn

import (
	"github.com/esim-ml/esim/internal/autodiff"
	"github.com/esim-ml/esim/internal/backend/cpu"
	"github.com/esim-ml/esim/internal/tensor"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newTestBackend() Backend {
	return autodiff.New(cpu.New())
}

func mustFromSlice(data []float32, shape tensor.Shape, backend Backend) *tensor.Tensor[float32, Backend] {
	t, err := tensor.FromSlice[float32](data, shape, backend)
	if err != nil {
		panic(err)
	}
	return t
}
