package nn

import (
	"fmt"

	"github.com/esim-ml/esim/internal/tensor"
)

// LSTMCell is a single long short-term memory cell.
//
// At every timestep the cell combines the input x with the previous
// hidden state h through four gates:
//
//	i = σ(Wxi x + Whi h + bi)   input gate
//	f = σ(Wxf x + Whf h + bf)   forget gate
//	g = tanh(Wxg x + Whg h + bg) cell update
//	o = σ(Wxo x + Who h + bo)   output gate
//	c' = f ⊙ c + i ⊙ g
//	h' = o ⊙ tanh(c')
//
// The four gate projections are fused into single weight matrices of
// shape [4*hidden, in] and [4*hidden, hidden], chunked apart after the
// matmul. Gate order is i, f, g, o.
type LSTMCell[B tensor.Backend] struct {
	inputSize  int
	hiddenSize int
	wx         *Parameter[B] // [4*hidden, input]
	wh         *Parameter[B] // [4*hidden, hidden]
	bias       *Parameter[B] // [4*hidden]
	backend    B
}

// NewLSTMCell creates a new LSTM cell.
//
// Weights use Xavier initialization, biases start at zero.
func NewLSTMCell[B tensor.Backend](inputSize, hiddenSize int, backend B) *LSTMCell[B] {
	wx := Xavier(inputSize, 4*hiddenSize, tensor.Shape{4 * hiddenSize, inputSize}, backend)
	wh := Xavier(hiddenSize, 4*hiddenSize, tensor.Shape{4 * hiddenSize, hiddenSize}, backend)
	bias := Zeros(tensor.Shape{4 * hiddenSize}, backend)

	return &LSTMCell[B]{
		inputSize:  inputSize,
		hiddenSize: hiddenSize,
		wx:         NewParameter("wx", wx),
		wh:         NewParameter("wh", wh),
		bias:       NewParameter("bias", bias),
		backend:    backend,
	}
}

// Step advances the cell by one timestep.
//
// Shapes:
//   - x: [batch, input]
//   - h, c: [batch, hidden]
//
// Returns the new hidden and cell states, both [batch, hidden].
func (l *LSTMCell[B]) Step(x, h, c *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	if x.Shape()[1] != l.inputSize {
		panic(fmt.Sprintf("LSTMCell.Step: expected input with %d features, got %d", l.inputSize, x.Shape()[1]))
	}

	// gates = x @ Wxᵀ + h @ Whᵀ + b  -> [batch, 4*hidden]
	gates := x.MatMul(l.wx.Tensor().Transpose())
	gates = gates.Add(h.MatMul(l.wh.Tensor().Transpose()))
	gates = gates.Add(l.bias.Tensor().Reshape(1, 4*l.hiddenSize))

	parts := gates.Chunk(4, 1)
	i := parts[0].Sigmoid()
	f := parts[1].Sigmoid()
	g := parts[2].Tanh()
	o := parts[3].Sigmoid()

	cNext := f.Mul(c).Add(i.Mul(g))
	hNext := o.Mul(cNext.Tanh())

	return hNext, cNext
}

// HiddenSize returns the hidden state size.
func (l *LSTMCell[B]) HiddenSize() int {
	return l.hiddenSize
}

// Parameters returns the trainable parameters [wx, wh, bias].
func (l *LSTMCell[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.wx, l.wh, l.bias}
}

// BiLSTM is a bidirectional LSTM encoder.
//
// It runs one LSTM cell forward over the sequence and a second cell
// backward, then concatenates the per-timestep hidden states of both
// directions along the feature dimension.
//
// Forward: [batch, seq, input] -> [batch, seq, 2*hidden]
type BiLSTM[B tensor.Backend] struct {
	inputSize  int
	hiddenSize int
	fwd        *LSTMCell[B]
	bwd        *LSTMCell[B]
	backend    B
}

// NewBiLSTM creates a new bidirectional LSTM encoder.
func NewBiLSTM[B tensor.Backend](inputSize, hiddenSize int, backend B) *BiLSTM[B] {
	return &BiLSTM[B]{
		inputSize:  inputSize,
		hiddenSize: hiddenSize,
		fwd:        NewLSTMCell(inputSize, hiddenSize, backend),
		bwd:        NewLSTMCell(inputSize, hiddenSize, backend),
		backend:    backend,
	}
}

// Forward encodes a batch of sequences.
//
// Input shape: [batch, seq, input]
// Output shape: [batch, seq, 2*hidden], where the first hidden features
// come from the forward direction and the rest from the backward one.
func (b *BiLSTM[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) != 3 {
		panic(fmt.Sprintf("BiLSTM.Forward: expected 3D input [batch, seq, features], got shape %v", shape))
	}
	if shape[2] != b.inputSize {
		panic(fmt.Sprintf("BiLSTM.Forward: expected input with %d features, got %d", b.inputSize, shape[2]))
	}

	batch, seq := shape[0], shape[1]

	// Split into per-timestep slices [batch, input]
	steps := make([]*tensor.Tensor[float32, B], seq)
	for i, chunk := range x.Chunk(seq, 1) {
		steps[i] = chunk.Squeeze(1)
	}

	stateShape := tensor.Shape{batch, b.hiddenSize}

	// Forward direction
	h := Zeros(stateShape, b.backend)
	c := Zeros(stateShape, b.backend)
	fwdOut := make([]*tensor.Tensor[float32, B], seq)
	for t := 0; t < seq; t++ {
		h, c = b.fwd.Step(steps[t], h, c)
		fwdOut[t] = h.Unsqueeze(1) // [batch, 1, hidden]
	}

	// Backward direction, outputs stored back in forward order
	h = Zeros(stateShape, b.backend)
	c = Zeros(stateShape, b.backend)
	bwdOut := make([]*tensor.Tensor[float32, B], seq)
	for t := seq - 1; t >= 0; t-- {
		h, c = b.bwd.Step(steps[t], h, c)
		bwdOut[t] = h.Unsqueeze(1)
	}

	fwdSeq := tensor.Cat(fwdOut, 1) // [batch, seq, hidden]
	bwdSeq := tensor.Cat(bwdOut, 1) // [batch, seq, hidden]

	return tensor.Cat([]*tensor.Tensor[float32, B]{fwdSeq, bwdSeq}, 2)
}

// OutputSize returns the feature size of the encoder output (2*hidden).
func (b *BiLSTM[B]) OutputSize() int {
	return 2 * b.hiddenSize
}

// Parameters returns the trainable parameters of both directions.
func (b *BiLSTM[B]) Parameters() []*Parameter[B] {
	params := b.fwd.Parameters()
	return append(params, b.bwd.Parameters()...)
}
