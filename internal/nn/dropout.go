package nn

import (
	"fmt"
	"math/rand"

	"github.com/esim-ml/esim/internal/tensor"
)

// Dropout randomly zeroes elements of the input with probability P during
// training, scaling the survivors by 1/(1-P) so the expected activation
// is unchanged (inverted dropout). In evaluation mode it is the identity.
type Dropout[B tensor.Backend] struct {
	P        float32 // drop probability in [0, 1)
	training bool
	rng      *rand.Rand // per-layer source, keeps mask streams independent across layers
}

// NewDropout creates a new Dropout module.
//
// Panics if p is outside [0, 1).
func NewDropout[B tensor.Backend](p float32) *Dropout[B] {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("dropout: probability must be in [0, 1), got %v", p))
	}
	//nolint:gosec // math/rand is appropriate for dropout sampling
	return &Dropout[B]{
		P:        p,
		training: true,
		rng:      rand.New(rand.NewSource(rand.Int63())),
	}
}

// Train puts the module in training mode (dropout active).
func (d *Dropout[B]) Train() {
	d.training = true
}

// Eval puts the module in evaluation mode (identity).
func (d *Dropout[B]) Eval() {
	d.training = false
}

// Forward applies dropout to the input.
//
// The mask multiplication is recorded on the tape like any other
// element-wise product, so gradients are masked and scaled consistently
// with the forward pass.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.P == 0 {
		return input
	}

	backend := input.Backend()
	maskRaw, err := tensor.NewRaw(input.Shape(), tensor.Float32, backend.Device())
	if err != nil {
		panic(fmt.Sprintf("dropout: failed to create mask: %v", err))
	}

	maskData := maskRaw.AsFloat32()
	for i := range maskData {
		if d.rng.Float32() < d.P {
			maskData[i] = 0
		} else {
			maskData[i] = 1
		}
	}

	mask := tensor.New[float32, B](maskRaw, backend)

	scale := 1 / (1 - d.P)
	return input.Mul(mask).MulScalar(scale)
}

// Parameters returns nil (Dropout has no trainable parameters).
func (d *Dropout[B]) Parameters() []*Parameter[B] {
	return nil
}
