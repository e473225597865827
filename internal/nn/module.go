// Package nn implements the neural network building blocks used by the
// sequence inference model:
//   - Module interface: base interface for all NN components
//   - Parameter: trainable parameters with gradient tracking
//   - Linear, Embedding, BatchNorm, Dropout: layers
//   - LSTMCell, BiLSTM: recurrent encoders
//   - Activations: ReLU, ELU, Sigmoid, Tanh
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/esim-ml/esim/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: compute output from input
//   - Parameters: return all trainable parameters
//
// Modules with a different forward signature (Embedding takes int32
// indices, BiLSTM threads hidden state) implement Parameters and expose
// their own Forward.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module.
	// Returns an empty slice for modules without trainable parameters.
	Parameters() []*Parameter[B]
}
