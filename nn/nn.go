// Package nn provides the public API for the neural network layers used
// by the sequence inference model: dense, embedding, normalization,
// dropout, recurrent encoders and activations.
package nn

import (
	"github.com/esim-ml/esim/internal/nn"
	"github.com/esim-ml/esim/internal/tensor"
)

// Module is the common interface for all neural network modules.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter represents a trainable parameter in a neural network.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Layers

// Linear represents a fully connected (dense) layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a new linear layer with Xavier initialization.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// Embedding maps token ids to dense vectors.
type Embedding[B tensor.Backend] = nn.Embedding[B]

// NewEmbedding creates a new embedding layer with N(0, 1) initialization.
func NewEmbedding[B tensor.Backend](numEmbeddings, embeddingDim int, backend B) *Embedding[B] {
	return nn.NewEmbedding[B](numEmbeddings, embeddingDim, backend)
}

// NewEmbeddingWithWeight creates an embedding layer from pre-initialized
// weights (e.g. pretrained word vectors).
func NewEmbeddingWithWeight[B tensor.Backend](weight *tensor.Tensor[float32, B]) *Embedding[B] {
	return nn.NewEmbeddingWithWeight(weight)
}

// BatchNorm normalizes the last (feature) dimension with batch statistics
// at train time and running statistics at eval time.
type BatchNorm[B tensor.Backend] = nn.BatchNorm[B]

// NewBatchNorm creates a new batch normalization layer.
func NewBatchNorm[B tensor.Backend](features int, epsilon float32, backend B) *BatchNorm[B] {
	return nn.NewBatchNorm[B](features, epsilon, backend)
}

// Dropout randomly zeroes inputs during training (inverted dropout).
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a new dropout layer with drop probability p in [0, 1).
func NewDropout[B tensor.Backend](p float32) *Dropout[B] {
	return nn.NewDropout[B](p)
}

// Recurrent encoders

// LSTMCell is a single long short-term memory cell.
type LSTMCell[B tensor.Backend] = nn.LSTMCell[B]

// NewLSTMCell creates a new LSTM cell.
func NewLSTMCell[B tensor.Backend](inputSize, hiddenSize int, backend B) *LSTMCell[B] {
	return nn.NewLSTMCell(inputSize, hiddenSize, backend)
}

// BiLSTM is a bidirectional LSTM encoder producing per-timestep
// [batch, seq, 2*hidden] outputs.
type BiLSTM[B tensor.Backend] = nn.BiLSTM[B]

// NewBiLSTM creates a new bidirectional LSTM encoder.
func NewBiLSTM[B tensor.Backend](inputSize, hiddenSize int, backend B) *BiLSTM[B] {
	return nn.NewBiLSTM(inputSize, hiddenSize, backend)
}

// Activations

// ReLU is the rectified linear unit activation module.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a new ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// ELU is the exponential linear unit activation module.
type ELU[B tensor.Backend] = nn.ELU[B]

// NewELU creates a new ELU activation module with alpha = 1.
func NewELU[B tensor.Backend]() *ELU[B] {
	return nn.NewELU[B]()
}

// Sigmoid is the logistic sigmoid activation module.
type Sigmoid[B tensor.Backend] = nn.Sigmoid[B]

// NewSigmoid creates a new Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return nn.NewSigmoid[B]()
}

// Tanh is the hyperbolic tangent activation module.
type Tanh[B tensor.Backend] = nn.Tanh[B]

// NewTanh creates a new Tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return nn.NewTanh[B]()
}

// Initializers

// Xavier returns a tensor initialized with Xavier/Glorot uniform values.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Xavier(fanIn, fanOut, shape, backend)
}

// Zeros returns a zero-filled float32 tensor.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Zeros(shape, backend)
}

// Ones returns a one-filled float32 tensor.
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Ones(shape, backend)
}

// Randn returns a float32 tensor with values drawn from N(0, 1).
func Randn[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Randn(shape, backend)
}
