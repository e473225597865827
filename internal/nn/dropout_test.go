package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/esim-ml/esim/internal/tensor"
)

func TestDropoutEval_Identity(t *testing.T) {
	backend := newTestBackend()
	drop := NewDropout[Backend](0.5)
	drop.Eval()

	x := mustFromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	out := drop.Forward(x)

	assert.Equal(t, []float32{1, 2, 3, 4}, out.Data())
}

func TestDropoutZeroRate_Identity(t *testing.T) {
	backend := newTestBackend()
	drop := NewDropout[Backend](0)

	x := mustFromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	out := drop.Forward(x)

	for i, want := range []float32{1, 2, 3, 4} {
		assert.InDelta(t, float64(want), out.Data()[i], 1e-6)
	}
}

func TestDropoutTraining_ZeroesAndScales(t *testing.T) {
	backend := newTestBackend()
	drop := NewDropout[Backend](0.5)

	x := mustFromSlice(make([]float32, 1000), tensor.Shape{1000}, backend)
	for i := range x.Data() {
		x.Data()[i] = 1
	}

	out := drop.Forward(x)

	// Survivors are scaled by 1/(1-p) = 2, the rest are zeroed.
	var kept int
	for _, v := range out.Data() {
		switch v {
		case 0:
			// dropped
		case 2:
			kept++
		default:
			t.Fatalf("unexpected value %v, want 0 or 2", v)
		}
	}

	// With p=0.5 over 1000 elements the kept count should land well
	// inside [350, 650].
	assert.Greater(t, kept, 350)
	assert.Less(t, kept, 650)
}

func TestDropoutTraining_LayersSampleIndependently(t *testing.T) {
	backend := newTestBackend()
	a := NewDropout[Backend](0.5)
	b := NewDropout[Backend](0.5)

	x := mustFromSlice(make([]float32, 1000), tensor.Shape{1000}, backend)
	for i := range x.Data() {
		x.Data()[i] = 1
	}

	// Each layer owns its random source, so the masks come from distinct
	// streams rather than splitting one shared sequence.
	outA := a.Forward(x.Clone()).Data()
	outB := b.Forward(x.Clone()).Data()
	assert.NotEqual(t, outA, outB)
}

func TestNewDropout_RejectsBadRate(t *testing.T) {
	assert.Panics(t, func() { NewDropout[Backend](1.0) })
	assert.Panics(t, func() { NewDropout[Backend](-0.1) })
}
