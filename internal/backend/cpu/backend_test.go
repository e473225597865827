package cpu

import (
	"math"
	"testing"

	"github.com/esim-ml/esim/internal/tensor"
)

func fromSlice(t *testing.T, data []float32, shape tensor.Shape, backend *CPUBackend) *tensor.RawTensor {
	t.Helper()
	tt, err := tensor.FromSlice[float32](data, shape, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	return tt.Raw()
}

func assertFloats(t *testing.T, got, want []float32, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > tol {
			t.Errorf("element %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAdd_SameShape(t *testing.T) {
	backend := New()

	a := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	b := fromSlice(t, []float32{10, 20, 30, 40}, tensor.Shape{2, 2}, backend)

	result := backend.Add(a, b)
	assertFloats(t, result.AsFloat32(), []float32{11, 22, 33, 44}, 0)
}

func TestAdd_Broadcast(t *testing.T) {
	backend := New()

	// [2, 3] + [1, 3]
	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	b := fromSlice(t, []float32{10, 20, 30}, tensor.Shape{1, 3}, backend)

	result := backend.Add(a, b)
	if !result.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("unexpected shape %v", result.Shape())
	}
	assertFloats(t, result.AsFloat32(), []float32{11, 22, 33, 14, 25, 36}, 0)
}

func TestAdd_BroadcastMiddleDim(t *testing.T) {
	backend := New()

	// [1, 2, 2] + [1, 1, 2]: the attention bias pattern
	a := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{1, 2, 2}, backend)
	b := fromSlice(t, []float32{0, -100}, tensor.Shape{1, 1, 2}, backend)

	result := backend.Add(a, b)
	assertFloats(t, result.AsFloat32(), []float32{1, -98, 3, -96}, 0)
}

func TestSub_Mul_Div(t *testing.T) {
	backend := New()

	a := fromSlice(t, []float32{4, 9, 16, 25}, tensor.Shape{4}, backend)
	b := fromSlice(t, []float32{2, 3, 4, 5}, tensor.Shape{4}, backend)

	assertFloats(t, backend.Sub(a.Clone(), b).AsFloat32(), []float32{2, 6, 12, 20}, 0)
	assertFloats(t, backend.Mul(a.Clone(), b).AsFloat32(), []float32{8, 27, 64, 125}, 0)
	assertFloats(t, backend.Div(a.Clone(), b).AsFloat32(), []float32{2, 3, 4, 5}, 0)
}

func TestMatMul(t *testing.T) {
	backend := New()

	// [2, 3] @ [3, 2]
	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	b := fromSlice(t, []float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2}, backend)

	result := backend.MatMul(a, b)
	if !result.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("unexpected shape %v", result.Shape())
	}
	assertFloats(t, result.AsFloat32(), []float32{58, 64, 139, 154}, 1e-4)
}

func TestBatchMatMul(t *testing.T) {
	backend := New()

	// [2, 2, 2] @ [2, 2, 2], batches computed independently
	a := fromSlice(t, []float32{
		1, 2, 3, 4, // batch 0
		5, 6, 7, 8, // batch 1
	}, tensor.Shape{2, 2, 2}, backend)
	b := fromSlice(t, []float32{
		1, 0, 0, 1, // identity
		2, 0, 0, 2, // 2*identity
	}, tensor.Shape{2, 2, 2}, backend)

	result := backend.BatchMatMul(a, b)
	assertFloats(t, result.AsFloat32(), []float32{1, 2, 3, 4, 10, 12, 14, 16}, 1e-4)
}

func TestBatchMatMul_RejectsNon3D(t *testing.T) {
	backend := New()
	a := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for 2D input")
		}
	}()
	backend.BatchMatMul(a, a)
}

func TestTranspose_SwapLastTwo(t *testing.T) {
	backend := New()

	x := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{1, 2, 3}, backend)
	result := backend.Transpose(x, 0, 2, 1)

	if !result.Shape().Equal(tensor.Shape{1, 3, 2}) {
		t.Fatalf("unexpected shape %v", result.Shape())
	}
	assertFloats(t, result.AsFloat32(), []float32{1, 4, 2, 5, 3, 6}, 0)
}

func TestSoftmax_LastDim(t *testing.T) {
	backend := New()

	x := fromSlice(t, []float32{1, 2, 3, 1, 1, 1}, tensor.Shape{2, 3}, backend)
	result := backend.Softmax(x, -1)

	data := result.AsFloat32()
	for row := 0; row < 2; row++ {
		var sum float32
		for j := 0; j < 3; j++ {
			sum += data[row*3+j]
		}
		if math.Abs(float64(sum-1)) > 1e-5 {
			t.Errorf("row %d sums to %v, want 1", row, sum)
		}
	}
	// Uniform row
	assertFloats(t, data[3:], []float32{1.0 / 3, 1.0 / 3, 1.0 / 3}, 1e-5)
}

func TestSoftmax_MiddleDim(t *testing.T) {
	backend := New()

	// Softmax along dim 1 of [1, 2, 2]: columns sum to 1
	x := fromSlice(t, []float32{1, 5, 3, 5}, tensor.Shape{1, 2, 2}, backend)
	result := backend.Softmax(x, 1)

	data := result.AsFloat32()
	for col := 0; col < 2; col++ {
		sum := data[col] + data[2+col]
		if math.Abs(float64(sum-1)) > 1e-5 {
			t.Errorf("column %d sums to %v, want 1", col, sum)
		}
	}
	// Equal scores in column 1 split evenly
	if math.Abs(float64(data[1]-0.5)) > 1e-5 {
		t.Errorf("expected 0.5 for equal scores, got %v", data[1])
	}
}

func TestSoftmax_LargeNegativeBias(t *testing.T) {
	backend := New()

	x := fromSlice(t, []float32{1, 2, -1e9}, tensor.Shape{1, 3}, backend)
	result := backend.Softmax(x, -1)

	data := result.AsFloat32()
	if data[2] > 1e-6 {
		t.Errorf("masked position got weight %v, want ~0", data[2])
	}
	if math.Abs(float64(data[0]+data[1]-1)) > 1e-5 {
		t.Errorf("unmasked positions sum to %v, want 1", data[0]+data[1])
	}
}

func TestActivations(t *testing.T) {
	backend := New()

	x := fromSlice(t, []float32{-2, -1, 0, 1, 2}, tensor.Shape{5}, backend)

	relu := backend.ReLU(x)
	assertFloats(t, relu.AsFloat32(), []float32{0, 0, 0, 1, 2}, 0)

	elu := backend.ELU(x, 1.0)
	want := []float32{
		float32(math.Exp(-2) - 1),
		float32(math.Exp(-1) - 1),
		0, 1, 2,
	}
	assertFloats(t, elu.AsFloat32(), want, 1e-5)

	sigmoid := backend.Sigmoid(x)
	if math.Abs(float64(sigmoid.AsFloat32()[2]-0.5)) > 1e-6 {
		t.Errorf("sigmoid(0) = %v, want 0.5", sigmoid.AsFloat32()[2])
	}

	tanh := backend.Tanh(x)
	if math.Abs(float64(tanh.AsFloat32()[4]-float32(math.Tanh(2)))) > 1e-5 {
		t.Errorf("tanh(2) = %v", tanh.AsFloat32()[4])
	}
}

func TestRsqrt(t *testing.T) {
	backend := New()

	x := fromSlice(t, []float32{1, 4, 16}, tensor.Shape{3}, backend)
	result := backend.Rsqrt(x)
	assertFloats(t, result.AsFloat32(), []float32{1, 0.5, 0.25}, 1e-6)
}

func TestScalarOps(t *testing.T) {
	backend := New()

	x := fromSlice(t, []float32{1, 2, 3}, tensor.Shape{3}, backend)
	assertFloats(t, backend.MulScalar(x.Clone(), float32(2)).AsFloat32(), []float32{2, 4, 6}, 0)
	assertFloats(t, backend.AddScalar(x.Clone(), float32(10)).AsFloat32(), []float32{11, 12, 13}, 0)
}

func TestReductions(t *testing.T) {
	backend := New()

	x := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)

	sum := backend.SumDim(x, 1, false)
	if !sum.Shape().Equal(tensor.Shape{2}) {
		t.Fatalf("SumDim shape %v", sum.Shape())
	}
	assertFloats(t, sum.AsFloat32(), []float32{6, 15}, 1e-6)

	mean := backend.MeanDim(x, 1, true)
	if !mean.Shape().Equal(tensor.Shape{2, 1}) {
		t.Fatalf("MeanDim keepDim shape %v", mean.Shape())
	}
	assertFloats(t, mean.AsFloat32(), []float32{2, 5}, 1e-6)

	max := backend.MaxDim(x, 0, false)
	assertFloats(t, max.AsFloat32(), []float32{4, 5, 6}, 0)
}

func TestReduceTimeAxis(t *testing.T) {
	backend := New()

	// [1, 4, 2]: the pooling pattern, reduce over dim 1
	x := fromSlice(t, []float32{1, 10, 2, 20, 3, 30, 4, 40}, tensor.Shape{1, 4, 2}, backend)

	mean := backend.MeanDim(x, 1, false)
	assertFloats(t, mean.AsFloat32(), []float32{2.5, 25}, 1e-5)

	max := backend.MaxDim(x, 1, false)
	assertFloats(t, max.AsFloat32(), []float32{4, 40}, 0)
}

func TestCatChunk_RoundTrip(t *testing.T) {
	backend := New()

	a := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	b := fromSlice(t, []float32{5, 6, 7, 8}, tensor.Shape{2, 2}, backend)

	cat := backend.Cat([]*tensor.RawTensor{a, b}, 1)
	if !cat.Shape().Equal(tensor.Shape{2, 4}) {
		t.Fatalf("Cat shape %v", cat.Shape())
	}
	assertFloats(t, cat.AsFloat32(), []float32{1, 2, 5, 6, 3, 4, 7, 8}, 0)

	parts := backend.Chunk(cat, 2, 1)
	if len(parts) != 2 {
		t.Fatalf("Chunk returned %d parts", len(parts))
	}
	assertFloats(t, parts[0].AsFloat32(), []float32{1, 2, 3, 4}, 0)
	assertFloats(t, parts[1].AsFloat32(), []float32{5, 6, 7, 8}, 0)
}

func TestUnsqueezeSqueeze(t *testing.T) {
	backend := New()

	x := fromSlice(t, []float32{1, 2, 3}, tensor.Shape{3}, backend)

	up := backend.Unsqueeze(x, 0)
	if !up.Shape().Equal(tensor.Shape{1, 3}) {
		t.Fatalf("Unsqueeze shape %v", up.Shape())
	}

	down := backend.Squeeze(up, 0)
	if !down.Shape().Equal(tensor.Shape{3}) {
		t.Fatalf("Squeeze shape %v", down.Shape())
	}
}

func TestEmbedding_Lookup(t *testing.T) {
	backend := New()

	weight := fromSlice(t, []float32{
		0, 0,
		1, 1,
		2, 2,
	}, tensor.Shape{3, 2}, backend)

	indicesT, err := tensor.FromSlice[int32]([]int32{2, 0, 1}, tensor.Shape{1, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	result := backend.Embedding(weight, indicesT.Raw())
	if !result.Shape().Equal(tensor.Shape{1, 3, 2}) {
		t.Fatalf("Embedding shape %v", result.Shape())
	}
	assertFloats(t, result.AsFloat32(), []float32{2, 2, 0, 0, 1, 1}, 0)
}

func TestEmbedding_OutOfRange(t *testing.T) {
	backend := New()

	weight := fromSlice(t, []float32{0, 0, 1, 1}, tensor.Shape{2, 2}, backend)
	indicesT, err := tensor.FromSlice[int32]([]int32{2}, tensor.Shape{1}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range index")
		}
	}()
	backend.Embedding(weight, indicesT.Raw())
}
