package esim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esim-ml/esim/internal/autodiff"
	"github.com/esim-ml/esim/internal/backend/cpu"
	"github.com/esim-ml/esim/internal/tensor"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newTestBackend() Backend {
	return autodiff.New(cpu.New())
}

func testConfig() Config {
	return Config{
		VocabSize:   100,
		WordDims:    8,
		HiddenUnits: 16,
		DenseUnits:  32,
		Classes:     3,
		Dropout:     0,
	}
}

func newTestModel(t *testing.T, backend Backend) *Model[Backend] {
	t.Helper()
	m, err := New(testConfig(), backend)
	require.NoError(t, err)
	return m
}

// tokens builds a deterministic [batch, seq] id tensor with ids < vocab.
func tokens(t *testing.T, backend Backend, batch, seq, vocab int) *tensor.Tensor[int32, Backend] {
	t.Helper()
	data := make([]int32, batch*seq)
	for i := range data {
		data[i] = int32((i*7 + 3) % vocab)
	}
	tt, err := tensor.FromSlice[int32](data, tensor.Shape{batch, seq}, backend)
	require.NoError(t, err)
	return tt
}

// zeroMask builds an all-valid additive mask [batch, seq].
func zeroMask(t *testing.T, backend Backend, batch, seq int) *tensor.Tensor[float32, Backend] {
	t.Helper()
	tt, err := tensor.FromSlice[float32](make([]float32, batch*seq), tensor.Shape{batch, seq}, backend)
	require.NoError(t, err)
	return tt
}

func TestConfigValidate(t *testing.T) {
	valid := testConfig()
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero vocab", func(c *Config) { c.VocabSize = 0 }},
		{"negative word dims", func(c *Config) { c.WordDims = -1 }},
		{"zero hidden units", func(c *Config) { c.HiddenUnits = 0 }},
		{"zero dense units", func(c *Config) { c.DenseUnits = 0 }},
		{"zero classes", func(c *Config) { c.Classes = 0 }},
		{"dropout of one", func(c *Config) { c.Dropout = 1 }},
		{"negative dropout", func(c *Config) { c.Dropout = -0.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Classes = 0

	_, err := New(cfg, newTestBackend())
	assert.Error(t, err)
}

func TestForward_EndToEnd(t *testing.T) {
	backend := newTestBackend()
	m := newTestModel(t, backend)
	m.Eval()

	x1 := tokens(t, backend, 2, 5, 100)
	x2 := tokens(t, backend, 2, 7, 100)
	out := m.Forward(x1, x2, zeroMask(t, backend, 2, 5), zeroMask(t, backend, 2, 7))

	require.True(t, out.Shape().Equal(tensor.Shape{2, 3}))
	for i, v := range out.Data() {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Errorf("logit %d is not finite: %v", i, v)
		}
	}
}

func TestForward_ShapeIndependentOfLengths(t *testing.T) {
	backend := newTestBackend()
	m := newTestModel(t, backend)
	m.Eval()

	lengths := []struct{ l1, l2 int }{
		{1, 1},
		{1, 6},
		{4, 4},
		{3, 9},
	}
	for _, p := range lengths {
		x1 := tokens(t, backend, 2, p.l1, 100)
		x2 := tokens(t, backend, 2, p.l2, 100)
		out := m.Forward(x1, x2, zeroMask(t, backend, 2, p.l1), zeroMask(t, backend, 2, p.l2))
		assert.True(t, out.Shape().Equal(tensor.Shape{2, 3}), "lengths %d/%d gave shape %v", p.l1, p.l2, out.Shape())
	}
}

func TestForward_EvalDeterministic(t *testing.T) {
	backend := newTestBackend()

	cfg := testConfig()
	cfg.Dropout = 0.5
	m, err := New(cfg, backend)
	require.NoError(t, err)
	m.Eval()

	x1 := tokens(t, backend, 2, 4, 100)
	x2 := tokens(t, backend, 2, 6, 100)
	mask1 := zeroMask(t, backend, 2, 4)
	mask2 := zeroMask(t, backend, 2, 6)

	a := m.Forward(x1, x2, mask1, mask2).Data()
	b := m.Forward(x1, x2, mask1, mask2).Data()
	assert.Equal(t, a, b)
}

func TestForward_Asymmetric(t *testing.T) {
	backend := newTestBackend()
	m := newTestModel(t, backend)
	m.Eval()

	x1 := tokens(t, backend, 1, 4, 100)
	x2 := tokens(t, backend, 1, 6, 100)
	mask1 := zeroMask(t, backend, 1, 4)
	mask2 := zeroMask(t, backend, 1, 6)

	ab := m.Forward(x1, x2, mask1, mask2).Data()
	ba := m.Forward(x2, x1, mask2, mask1).Data()

	var differ bool
	for i := range ab {
		if math.Abs(float64(ab[i]-ba[i])) > 1e-6 {
			differ = true
		}
	}
	assert.True(t, differ, "swapping premise and hypothesis did not change the logits")
}

func TestForward_OutOfRangeTokenPanics(t *testing.T) {
	backend := newTestBackend()
	m := newTestModel(t, backend)
	m.Eval()

	bad, err := tensor.FromSlice[int32]([]int32{100}, tensor.Shape{1, 1}, backend)
	require.NoError(t, err)
	x2 := tokens(t, backend, 1, 2, 100)

	assert.Panics(t, func() {
		m.Forward(bad, x2, zeroMask(t, backend, 1, 1), zeroMask(t, backend, 1, 2))
	})
}

func TestForward_InputValidation(t *testing.T) {
	backend := newTestBackend()
	m := newTestModel(t, backend)
	m.Eval()

	x1 := tokens(t, backend, 2, 3, 100)
	x2 := tokens(t, backend, 2, 4, 100)
	mask1 := zeroMask(t, backend, 2, 3)
	mask2 := zeroMask(t, backend, 2, 4)

	t.Run("batch mismatch", func(t *testing.T) {
		other := tokens(t, backend, 3, 4, 100)
		assert.Panics(t, func() {
			m.Forward(x1, other, mask1, zeroMask(t, backend, 3, 4))
		})
	})

	t.Run("mask shape mismatch", func(t *testing.T) {
		short := zeroMask(t, backend, 2, 2)
		assert.Panics(t, func() {
			m.Forward(x1, x2, short, mask2)
		})
	})

	t.Run("non-2D tokens", func(t *testing.T) {
		flat, err := tensor.FromSlice[int32]([]int32{1, 2, 3}, tensor.Shape{3}, backend)
		require.NoError(t, err)
		assert.Panics(t, func() {
			m.Forward(flat, x2, mask1, mask2)
		})
	})
}

func TestAlign_WeightsNormalizedAndMasked(t *testing.T) {
	backend := newTestBackend()
	m := newTestModel(t, backend)

	enc1, err := tensor.FromSlice[float32]([]float32{
		1, 0, 0, 1,
		0, 1, 1, 0,
	}, tensor.Shape{1, 2, 4}, backend)
	require.NoError(t, err)
	enc2, err := tensor.FromSlice[float32]([]float32{
		1, 1, 0, 0,
		0, 0, 1, 1,
		1, 0, 1, 0,
	}, tensor.Shape{1, 3, 4}, backend)
	require.NoError(t, err)

	// Last position of sequence 2 is padding.
	mask1 := zeroMask(t, backend, 1, 2)
	mask2, err := tensor.FromSlice[float32]([]float32{0, 0, -1e9}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)

	x1Align, x2Align, w1, w2 := m.align(enc1, enc2, mask1, mask2)

	require.True(t, w1.Shape().Equal(tensor.Shape{1, 2, 3}))
	require.True(t, w2.Shape().Equal(tensor.Shape{1, 2, 3}))
	require.True(t, x1Align.Shape().Equal(tensor.Shape{1, 2, 4}))
	require.True(t, x2Align.Shape().Equal(tensor.Shape{1, 3, 4}))

	// Direction 1: every row of w1 is a distribution over sequence 2.
	w1Data := w1.Data()
	for row := 0; row < 2; row++ {
		var sum float32
		for j := 0; j < 3; j++ {
			sum += w1Data[row*3+j]
		}
		assert.InDelta(t, 1.0, sum, 1e-5, "w1 row %d", row)

		// The padded position receives ~0 attention.
		assert.Less(t, float64(w1Data[row*3+2]), 1e-6, "w1 row %d padding weight", row)
	}

	// Direction 2: every column of w2 is a distribution over sequence 1.
	w2Data := w2.Data()
	for col := 0; col < 3; col++ {
		sum := w2Data[col] + w2Data[3+col]
		assert.InDelta(t, 1.0, sum, 1e-5, "w2 column %d", col)
	}
}

func TestAlign_UniformScoresAverage(t *testing.T) {
	backend := newTestBackend()
	m := newTestModel(t, backend)

	// Zero encodings give zero scores, so attention is uniform and each
	// aligned vector is the plain average of the other sequence.
	enc1, err := tensor.FromSlice[float32](make([]float32, 2*4), tensor.Shape{1, 2, 4}, backend)
	require.NoError(t, err)
	enc2, err := tensor.FromSlice[float32]([]float32{
		2, 2, 2, 2,
		4, 4, 4, 4,
	}, tensor.Shape{1, 2, 4}, backend)
	require.NoError(t, err)

	x1Align, _, _, _ := m.align(enc1, enc2, zeroMask(t, backend, 1, 2), zeroMask(t, backend, 1, 2))

	for _, v := range x1Align.Data() {
		assert.InDelta(t, 3.0, v, 1e-5)
	}
}

func TestPool_ConstantSequence(t *testing.T) {
	backend := newTestBackend()
	m := newTestModel(t, backend)

	// Constant over time: average and max both reproduce the constant.
	x, err := tensor.FromSlice[float32]([]float32{
		1, 5,
		1, 5,
		1, 5,
		1, 5,
	}, tensor.Shape{1, 4, 2}, backend)
	require.NoError(t, err)

	out := m.pool(x)
	require.True(t, out.Shape().Equal(tensor.Shape{1, 4}))

	data := out.Data()
	assert.InDelta(t, 1.0, data[0], 1e-6)
	assert.InDelta(t, 5.0, data[1], 1e-6)
	assert.InDelta(t, 1.0, data[2], 1e-6)
	assert.InDelta(t, 5.0, data[3], 1e-6)
}

func TestModelParameters(t *testing.T) {
	backend := newTestBackend()
	m := newTestModel(t, backend)

	// embedding 1, four batch norms 2 each, two encoders 6 each,
	// three dense layers 2 each
	assert.Len(t, m.Parameters(), 27)
}

func TestForward_PlainCPUMatchesWrapped(t *testing.T) {
	ref := newTestModel(t, newTestBackend())
	ref.Eval()

	plainBackend := cpu.New()
	plain, err := New(testConfig(), plainBackend)
	require.NoError(t, err)
	plain.Eval()

	// Same weights on both backends.
	refParams := ref.Parameters()
	plainParams := plain.Parameters()
	require.Equal(t, len(refParams), len(plainParams))
	for i := range refParams {
		copy(plainParams[i].Tensor().Data(), refParams[i].Tensor().Data())
	}

	// Length 1 exercises the same-shape mask addition on the attention
	// scores as well.
	lengths := []struct{ l1, l2 int }{
		{1, 3},
		{4, 6},
	}
	for _, p := range lengths {
		ids1 := make([]int32, 2*p.l1)
		ids2 := make([]int32, 2*p.l2)
		for i := range ids1 {
			ids1[i] = int32((i*7 + 3) % 100)
		}
		for i := range ids2 {
			ids2[i] = int32((i*7 + 3) % 100)
		}

		want := ref.Forward(
			mustTensor(t, ids1, tensor.Shape{2, p.l1}, ref.backend),
			mustTensor(t, ids2, tensor.Shape{2, p.l2}, ref.backend),
			mustTensor(t, make([]float32, 2*p.l1), tensor.Shape{2, p.l1}, ref.backend),
			mustTensor(t, make([]float32, 2*p.l2), tensor.Shape{2, p.l2}, ref.backend),
		).Data()
		got := plain.Forward(
			mustTensor(t, ids1, tensor.Shape{2, p.l1}, plainBackend),
			mustTensor(t, ids2, tensor.Shape{2, p.l2}, plainBackend),
			mustTensor(t, make([]float32, 2*p.l1), tensor.Shape{2, p.l1}, plainBackend),
			mustTensor(t, make([]float32, 2*p.l2), tensor.Shape{2, p.l2}, plainBackend),
		).Data()

		require.Equal(t, len(want), len(got))
		for i := range want {
			assert.InDelta(t, float64(want[i]), got[i], 1e-5, "lengths %d/%d logit %d", p.l1, p.l2, i)
		}
	}
}

func mustTensor[T tensor.DType, B tensor.Backend](t *testing.T, data []T, shape tensor.Shape, backend B) *tensor.Tensor[T, B] {
	t.Helper()
	tt, err := tensor.FromSlice[T](data, shape, backend)
	require.NoError(t, err)
	return tt
}

func TestForward_GradientsReachEmbedding(t *testing.T) {
	backend := newTestBackend()
	m := newTestModel(t, backend)
	m.Train()

	backend.Tape().Clear()
	backend.Tape().StartRecording()

	x1 := tokens(t, backend, 2, 3, 100)
	x2 := tokens(t, backend, 2, 4, 100)
	logits := m.Forward(x1, x2, zeroMask(t, backend, 2, 3), zeroMask(t, backend, 2, 4))

	gradients := autodiff.Backward(logits, backend)

	embWeight := m.embedding.Weight.Tensor().Raw()
	grad, ok := gradients[embWeight]
	require.True(t, ok, "no gradient reached the embedding weight")
	require.True(t, grad.Shape().Equal(tensor.Shape{100, 8}))

	var nonZero bool
	for _, g := range grad.AsFloat32() {
		if g != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "embedding gradient is identically zero")
}
