package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esim-ml/esim/internal/tensor"
)

func TestLinearForward(t *testing.T) {
	backend := newTestBackend()
	layer := NewLinear(3, 2, backend)

	// Overwrite the random init with known weights.
	// weight is [out, in]; output = x @ weightᵀ + bias
	copy(layer.Weight().Tensor().Data(), []float32{
		1, 0, -1,
		2, 1, 0,
	})
	copy(layer.Bias().Tensor().Data(), []float32{10, 20})

	x := mustFromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3}, backend)
	out := layer.Forward(x)

	require.True(t, out.Shape().Equal(tensor.Shape{1, 2}))
	data := out.Data()
	assert.InDelta(t, 8.0, data[0], 0.001)  // 1*1 + 2*0 + 3*(-1) + 10
	assert.InDelta(t, 24.0, data[1], 0.001) // 1*2 + 2*1 + 3*0 + 20
}

func TestLinearForward_Batch(t *testing.T) {
	backend := newTestBackend()
	layer := NewLinear(2, 2, backend)

	x := mustFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2}, backend)
	out := layer.Forward(x)

	require.True(t, out.Shape().Equal(tensor.Shape{3, 2}))
}

func TestLinearForward_RejectsWrongRank(t *testing.T) {
	backend := newTestBackend()
	layer := NewLinear(2, 2, backend)

	x := mustFromSlice([]float32{1, 2, 3, 4}, tensor.Shape{1, 2, 2}, backend)
	assert.Panics(t, func() { layer.Forward(x) })
}

func TestLinearParameters(t *testing.T) {
	backend := newTestBackend()
	layer := NewLinear(4, 3, backend)

	params := layer.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, "weight", params[0].Name())
	assert.Equal(t, "bias", params[1].Name())
	assert.True(t, params[0].Tensor().Shape().Equal(tensor.Shape{3, 4}))
	assert.True(t, params[1].Tensor().Shape().Equal(tensor.Shape{3}))
}

func TestXavierInitRange(t *testing.T) {
	backend := newTestBackend()
	layer := NewLinear(8, 8, backend)

	// Xavier uniform bound for fanIn = fanOut = 8 is sqrt(6/16) ≈ 0.612
	bound := float32(0.6124)
	for _, w := range layer.Weight().Tensor().Data() {
		assert.LessOrEqual(t, w, bound)
		assert.GreaterOrEqual(t, w, -bound)
	}
}
