package nn

import (
	"fmt"

	"github.com/esim-ml/esim/internal/tensor"
)

// BatchNorm applies batch normalization over the last (feature) dimension.
//
// Formula: Y = gamma * (X - mean) / sqrt(var + eps) + beta
//
// In training mode the statistics are computed per feature across every
// other position in the batch (for input [batch, seq, features] that is
// batch*seq samples per feature), and exponential moving averages of them
// are maintained. In evaluation mode the moving averages are used
// instead, making the output deterministic and independent of the other
// examples in the batch.
type BatchNorm[B tensor.Backend] struct {
	Gamma    *Parameter[B] // learnable scale [features]
	Beta     *Parameter[B] // learnable shift [features]
	Epsilon  float32       // numerical stability constant
	Momentum float32       // moving average decay for running statistics

	runningMean []float32
	runningVar  []float32
	features    int
	training    bool
	backend     B
}

// NewBatchNorm creates a new BatchNorm layer over the given number of
// features.
//
// Gamma is initialized to ones, beta to zeros, the running mean to zeros
// and the running variance to ones. Momentum follows the common 0.9
// default.
func NewBatchNorm[B tensor.Backend](features int, epsilon float32, backend B) *BatchNorm[B] {
	gamma := Ones(tensor.Shape{features}, backend)
	beta := Zeros(tensor.Shape{features}, backend)

	runningVar := make([]float32, features)
	for i := range runningVar {
		runningVar[i] = 1
	}

	return &BatchNorm[B]{
		Gamma:       NewParameter("gamma", gamma),
		Beta:        NewParameter("beta", beta),
		Epsilon:     epsilon,
		Momentum:    0.9,
		runningMean: make([]float32, features),
		runningVar:  runningVar,
		features:    features,
		training:    true,
		backend:     backend,
	}
}

// Train puts the layer in training mode (batch statistics).
func (bn *BatchNorm[B]) Train() {
	bn.training = true
}

// Eval puts the layer in evaluation mode (running statistics).
func (bn *BatchNorm[B]) Eval() {
	bn.training = false
}

// Forward applies batch normalization to the input.
//
// Shapes:
//   - input: [..., features]
//   - output: [..., features]
func (bn *BatchNorm[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("BatchNorm.Forward: expected at least 2D input, got shape %v", shape))
	}
	if shape[len(shape)-1] != bn.features {
		panic(fmt.Sprintf("BatchNorm.Forward: expected %d features, got %d", bn.features, shape[len(shape)-1]))
	}

	// Flatten every leading dimension so statistics run over one axis.
	n := x.NumElements() / bn.features
	flat := x.Reshape(n, bn.features)

	// flat is read again after the statistics; for a single-row batch the
	// mean subtraction is same-shape and would otherwise reuse flat's
	// buffer in place.
	defer flat.Raw().ForceNonUnique()()

	var mean, variance *tensor.Tensor[float32, B]
	if bn.training {
		mean = flat.MeanDim(0, true) // [1, features]
		centered := flat.Sub(mean)
		variance = centered.Mul(centered).MeanDim(0, true)

		bn.updateRunningStats(mean, variance)
	} else {
		mean = bn.constant(bn.runningMean)
		variance = bn.constant(bn.runningVar)
	}

	// (x - mean) / sqrt(var + eps)
	invStd := variance.AddScalar(bn.Epsilon).Rsqrt()
	norm := flat.Sub(mean).Mul(invStd)

	gamma := bn.Gamma.Tensor().Reshape(1, bn.features)
	beta := bn.Beta.Tensor().Reshape(1, bn.features)
	out := norm.Mul(gamma).Add(beta)

	return out.Reshape(shape...)
}

// updateRunningStats folds the batch statistics into the moving averages.
// The values are read out of the tensors directly; the update itself is
// plain float arithmetic and never touches the tape.
func (bn *BatchNorm[B]) updateRunningStats(mean, variance *tensor.Tensor[float32, B]) {
	meanData := mean.Raw().AsFloat32()
	varData := variance.Raw().AsFloat32()
	for i := 0; i < bn.features; i++ {
		bn.runningMean[i] = bn.Momentum*bn.runningMean[i] + (1-bn.Momentum)*meanData[i]
		bn.runningVar[i] = bn.Momentum*bn.runningVar[i] + (1-bn.Momentum)*varData[i]
	}
}

// constant materializes a running statistic as a [1, features] tensor.
func (bn *BatchNorm[B]) constant(values []float32) *tensor.Tensor[float32, B] {
	data := make([]float32, bn.features)
	copy(data, values)

	t, err := tensor.FromSlice[float32, B](data, tensor.Shape{1, bn.features}, bn.backend)
	if err != nil {
		panic(fmt.Sprintf("BatchNorm: failed to create statistic tensor: %v", err))
	}
	return t
}

// Parameters returns the learnable parameters (gamma and beta).
func (bn *BatchNorm[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.Gamma, bn.Beta}
}

// RunningMean returns the moving average of the per-feature mean.
func (bn *BatchNorm[B]) RunningMean() []float32 {
	return bn.runningMean
}

// RunningVar returns the moving average of the per-feature variance.
func (bn *BatchNorm[B]) RunningVar() []float32 {
	return bn.runningVar
}
