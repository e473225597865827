// Package cpu provides a pure Go CPU backend for tensor operations.
//
// The backend implements every operation of the tensor.Backend contract
// with float32 (and, for integer tensors, int32) kernels:
//   - element-wise arithmetic with NumPy-compatible broadcasting
//   - matrix and batched matrix products via gonum's blas32
//   - dim-aware softmax, activations and reductions
//   - shape manipulation (cat, chunk, squeeze, transpose, reshape)
//   - embedding lookup with bounds checking
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
package cpu

import (
	internalcpu "github.com/esim-ml/esim/internal/backend/cpu"
	"github.com/esim-ml/esim/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
func New() *Backend {
	return internalcpu.New()
}
