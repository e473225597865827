package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esim-ml/esim/internal/tensor"
)

func TestLSTMCellStep_Shapes(t *testing.T) {
	backend := newTestBackend()
	cell := NewLSTMCell(3, 4, backend)

	x := mustFromSlice(make([]float32, 2*3), tensor.Shape{2, 3}, backend)
	h := Zeros(tensor.Shape{2, 4}, backend)
	c := Zeros(tensor.Shape{2, 4}, backend)

	hNext, cNext := cell.Step(x, h, c)
	require.True(t, hNext.Shape().Equal(tensor.Shape{2, 4}))
	require.True(t, cNext.Shape().Equal(tensor.Shape{2, 4}))
}

func TestLSTMCellStep_ZeroWeights(t *testing.T) {
	backend := newTestBackend()
	cell := NewLSTMCell(2, 2, backend)

	// With all weights and biases zero every gate is sigmoid(0)=0.5 and
	// the candidate is tanh(0)=0, so the new state stays zero.
	for _, p := range cell.Parameters() {
		data := p.Tensor().Data()
		for i := range data {
			data[i] = 0
		}
	}

	x := mustFromSlice([]float32{1, -1}, tensor.Shape{1, 2}, backend)
	h := Zeros(tensor.Shape{1, 2}, backend)
	c := Zeros(tensor.Shape{1, 2}, backend)

	hNext, cNext := cell.Step(x, h, c)
	for i := 0; i < 2; i++ {
		assert.InDelta(t, 0.0, hNext.Data()[i], 1e-6)
		assert.InDelta(t, 0.0, cNext.Data()[i], 1e-6)
	}
}

func TestLSTMCellStep_BoundedOutput(t *testing.T) {
	backend := newTestBackend()
	cell := NewLSTMCell(2, 3, backend)

	x := mustFromSlice([]float32{100, -100}, tensor.Shape{1, 2}, backend)
	h := Zeros(tensor.Shape{1, 3}, backend)
	c := Zeros(tensor.Shape{1, 3}, backend)

	// h = o * tanh(c) stays in (-1, 1)
	hNext, _ := cell.Step(x, h, c)
	for _, v := range hNext.Data() {
		assert.Less(t, math.Abs(float64(v)), 1.0)
	}
}

func TestBiLSTMForward_Shape(t *testing.T) {
	backend := newTestBackend()
	encoder := NewBiLSTM(5, 7, backend)

	x := mustFromSlice(make([]float32, 2*3*5), tensor.Shape{2, 3, 5}, backend)
	out := encoder.Forward(x)

	require.True(t, out.Shape().Equal(tensor.Shape{2, 3, 14}))
	assert.Equal(t, 14, encoder.OutputSize())
}

func TestBiLSTMForward_SeqLengthOne(t *testing.T) {
	backend := newTestBackend()
	encoder := NewBiLSTM(4, 3, backend)

	x := mustFromSlice(make([]float32, 1*1*4), tensor.Shape{1, 1, 4}, backend)
	out := encoder.Forward(x)

	require.True(t, out.Shape().Equal(tensor.Shape{1, 1, 6}))
}

func TestBiLSTMForward_DirectionsDiffer(t *testing.T) {
	backend := newTestBackend()
	encoder := NewBiLSTM(2, 2, backend)

	x := mustFromSlice([]float32{
		1, 0,
		0, 1,
		-1, 1,
	}, tensor.Shape{1, 3, 2}, backend)
	out := encoder.Forward(x)

	// At the first timestep the forward direction has seen one input and
	// the backward direction the whole sequence; the halves should not
	// match for a random init.
	data := out.Data()
	var differ bool
	for i := 0; i < 2; i++ {
		if math.Abs(float64(data[i]-data[2+i])) > 1e-6 {
			differ = true
		}
	}
	assert.True(t, differ, "forward and backward features are identical")
}

func TestBiLSTMForward_RejectsWrongFeatures(t *testing.T) {
	backend := newTestBackend()
	encoder := NewBiLSTM(4, 3, backend)

	x := mustFromSlice(make([]float32, 2*3*5), tensor.Shape{2, 3, 5}, backend)
	assert.Panics(t, func() { encoder.Forward(x) })
}

func TestBiLSTMParameters(t *testing.T) {
	backend := newTestBackend()
	encoder := NewBiLSTM(4, 3, backend)

	// wx, wh, bias for each direction
	assert.Len(t, encoder.Parameters(), 6)
}
