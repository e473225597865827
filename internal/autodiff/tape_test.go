package autodiff_test

import (
	"testing"

	"github.com/esim-ml/esim/internal/autodiff"
	"github.com/esim-ml/esim/internal/tensor"
)

func TestTape_RecordsOnlyWhileRecording(t *testing.T) {
	backend := newBackend()
	tape := backend.Tape()

	x, _ := tensor.FromSlice[float32]([]float32{1, 2}, tensor.Shape{2}, backend)

	x.Mul(x)
	if tape.NumOps() != 0 {
		t.Fatalf("recorded %d ops before StartRecording", tape.NumOps())
	}

	tape.StartRecording()
	x.Mul(x)
	if tape.NumOps() != 1 {
		t.Fatalf("recorded %d ops, want 1", tape.NumOps())
	}

	tape.StopRecording()
	x.Mul(x)
	if tape.NumOps() != 1 {
		t.Fatalf("recorded %d ops after StopRecording, want 1", tape.NumOps())
	}

	tape.Clear()
	if tape.NumOps() != 0 {
		t.Fatalf("Clear left %d ops on the tape", tape.NumOps())
	}
}

func TestBackward_PanicsOnEmptyTape(t *testing.T) {
	backend := newBackend()
	backend.Tape().Clear()

	x, _ := tensor.FromSlice[float32]([]float32{1}, tensor.Shape{1}, backend)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty tape")
		}
	}()
	autodiff.Backward(x, backend)
}

func TestGradient_AccumulatesAcrossUses(t *testing.T) {
	backend := newBackend()
	backend.Tape().Clear()
	backend.Tape().StartRecording()

	x, _ := tensor.FromSlice[float32]([]float32{5}, tensor.Shape{1}, backend)

	// y = x + x, dy/dx = 2 via accumulation over both uses
	y := x.Add(x)
	gradients := autodiff.Backward(y, backend)

	got := gradients[x.Raw()].AsFloat32()[0]
	if got != 2 {
		t.Fatalf("accumulated gradient = %v, want 2", got)
	}
}
