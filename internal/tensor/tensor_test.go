package tensor_test

import (
	"testing"

	"github.com/esim-ml/esim/internal/backend/cpu"
	"github.com/esim-ml/esim/internal/tensor"
)

func TestFromSlice(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice[float32]([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	if !x.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("shape = %v, want [2 3]", x.Shape())
	}
	if x.At(1, 2) != 6 {
		t.Errorf("At(1, 2) = %v, want 6", x.At(1, 2))
	}
}

func TestFromSlice_SizeMismatch(t *testing.T) {
	backend := cpu.New()

	if _, err := tensor.FromSlice[float32]([]float32{1, 2, 3}, tensor.Shape{2, 2}, backend); err == nil {
		t.Error("size mismatch accepted")
	}
}

func TestCreation(t *testing.T) {
	backend := cpu.New()

	zeros := tensor.Zeros[float32](tensor.Shape{2, 2}, backend)
	for _, v := range zeros.Data() {
		if v != 0 {
			t.Fatalf("Zeros contains %v", v)
		}
	}

	ones := tensor.Ones[float32](tensor.Shape{3}, backend)
	for _, v := range ones.Data() {
		if v != 1 {
			t.Fatalf("Ones contains %v", v)
		}
	}

	full := tensor.Full[float32](tensor.Shape{2}, 7, backend)
	if full.Data()[0] != 7 || full.Data()[1] != 7 {
		t.Fatalf("Full = %v", full.Data())
	}

	arange := tensor.Arange[int32](2, 6, backend)
	want := []int32{2, 3, 4, 5}
	for i, v := range arange.Data() {
		if v != want[i] {
			t.Fatalf("Arange = %v, want %v", arange.Data(), want)
		}
	}
}

func TestSetAndAt(t *testing.T) {
	backend := cpu.New()

	x := tensor.Zeros[float32](tensor.Shape{2, 2}, backend)
	x.Set(9, 1, 0)
	if x.At(1, 0) != 9 {
		t.Errorf("At(1, 0) = %v after Set, want 9", x.At(1, 0))
	}
}

func TestItem(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice[float32]([]float32{42}, tensor.Shape{}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	if x.Item() != 42 {
		t.Errorf("Item() = %v, want 42", x.Item())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	backend := cpu.New()

	x, _ := tensor.FromSlice[float32]([]float32{1, 2}, tensor.Shape{2}, backend)
	y := x.Clone()
	y.Set(100, 0)

	if x.At(0) != 1 {
		t.Errorf("mutating the clone changed the source: %v", x.At(0))
	}
}

func TestManipulationShapes(t *testing.T) {
	backend := cpu.New()

	x, _ := tensor.FromSlice[float32]([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)

	up := x.Unsqueeze(1)
	if !up.Shape().Equal(tensor.Shape{2, 1, 3}) {
		t.Errorf("Unsqueeze shape = %v", up.Shape())
	}

	down := up.Squeeze(1)
	if !down.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("Squeeze shape = %v", down.Shape())
	}

	parts := x.Chunk(3, 1)
	if len(parts) != 3 {
		t.Fatalf("Chunk returned %d parts", len(parts))
	}
	for _, p := range parts {
		if !p.Shape().Equal(tensor.Shape{2, 1}) {
			t.Errorf("chunk shape = %v", p.Shape())
		}
	}

	back := tensor.Cat(parts, 1)
	if !back.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("Cat shape = %v", back.Shape())
	}
	for i, v := range back.Data() {
		if v != x.Data()[i] {
			t.Errorf("Cat(Chunk(x)) != x at %d: %v vs %v", i, v, x.Data()[i])
		}
	}
}
