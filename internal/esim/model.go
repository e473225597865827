// Package esim implements an enhanced sequential inference model for
// natural language inference: given a premise and a hypothesis as token
// id sequences, it produces raw class scores for their logical
// relationship.
//
// The forward pass runs seven stages in data-flow order:
//  1. Shared embedding lookup + feature normalization
//  2. Shared bidirectional context encoder
//  3. Soft attention alignment between the two encoded sequences
//  4. Local inference composition (submul fusion + projection)
//  5. Shared bidirectional composition encoder
//  6. Average + max pooling over time
//  7. Dense classifier head
//
// Sharing is structural: both sequences pass through the same embedding,
// normalization and encoder instances, so the weights are identical at
// every stage by construction.
package esim

import (
	"fmt"

	"github.com/esim-ml/esim/internal/nn"
	"github.com/esim-ml/esim/internal/tensor"
)

// Model is the inference model. It is a pure function (parameters aside)
// from two token sequences plus their padding masks to class logits;
// forward calls never mutate parameters.
//
// Type parameter B is the compute backend. Wrap the backend with
// autodiff to make forward passes differentiable.
type Model[B tensor.Backend] struct {
	cfg Config

	embedding *nn.Embedding[B]
	embedNorm *nn.BatchNorm[B]
	encoder1  *nn.BiLSTM[B] // context encoder, shared across both sequences

	projNorm  *nn.BatchNorm[B]
	projDrop  *nn.Dropout[B]
	projDense *nn.Linear[B]
	projAct   *nn.ReLU[B]
	encoder2  *nn.BiLSTM[B] // composition encoder, also shared

	clsNorm1  *nn.BatchNorm[B]
	clsDrop1  *nn.Dropout[B]
	clsDense1 *nn.Linear[B]
	clsAct    *nn.ELU[B]
	clsNorm2  *nn.BatchNorm[B]
	clsDrop2  *nn.Dropout[B]
	clsDense2 *nn.Linear[B]

	backend B
}

// New constructs a model from the given configuration.
//
// Returns an error if the configuration is invalid; all tensor allocation
// happens here, a successful New means Forward cannot fail on anything
// but malformed inputs.
func New[B tensor.Backend](cfg Config, backend B) (*Model[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := cfg.HiddenUnits
	encoded := 2 * h            // per-timestep encoder output width
	fused := 4 * encoded        // [x, aligned, x*aligned, x-aligned]
	pooled := 2 * (2 * encoded) // avg+max per sequence, two sequences

	return &Model[B]{
		cfg: cfg,

		embedding: nn.NewEmbedding[B](cfg.VocabSize, cfg.WordDims, backend),
		embedNorm: nn.NewBatchNorm[B](cfg.WordDims, 1e-5, backend),
		encoder1:  nn.NewBiLSTM[B](cfg.WordDims, h, backend),

		projNorm:  nn.NewBatchNorm[B](fused, 1e-5, backend),
		projDrop:  nn.NewDropout[B](cfg.Dropout),
		projDense: nn.NewLinear[B](fused, h, backend),
		projAct:   nn.NewReLU[B](),
		encoder2:  nn.NewBiLSTM[B](h, h, backend),

		clsNorm1:  nn.NewBatchNorm[B](pooled, 1e-5, backend),
		clsDrop1:  nn.NewDropout[B](cfg.Dropout),
		clsDense1: nn.NewLinear[B](pooled, cfg.DenseUnits, backend),
		clsAct:    nn.NewELU[B](),
		clsNorm2:  nn.NewBatchNorm[B](cfg.DenseUnits, 1e-5, backend),
		clsDrop2:  nn.NewDropout[B](cfg.Dropout),
		clsDense2: nn.NewLinear[B](cfg.DenseUnits, cfg.Classes, backend),

		backend: backend,
	}, nil
}

// Config returns the construction parameters.
func (m *Model[B]) Config() Config {
	return m.cfg
}

// Train puts the model in training mode: dropout active, batch
// normalization uses batch statistics.
func (m *Model[B]) Train() {
	for _, bn := range m.batchNorms() {
		bn.Train()
	}
	for _, d := range m.dropouts() {
		d.Train()
	}
}

// Eval puts the model in evaluation mode: dropout off, batch
// normalization uses running statistics. Forward passes are then
// deterministic.
func (m *Model[B]) Eval() {
	for _, bn := range m.batchNorms() {
		bn.Eval()
	}
	for _, d := range m.dropouts() {
		d.Eval()
	}
}

func (m *Model[B]) batchNorms() []*nn.BatchNorm[B] {
	return []*nn.BatchNorm[B]{m.embedNorm, m.projNorm, m.clsNorm1, m.clsNorm2}
}

func (m *Model[B]) dropouts() []*nn.Dropout[B] {
	return []*nn.Dropout[B]{m.projDrop, m.clsDrop1, m.clsDrop2}
}

// Parameters returns every trainable parameter of the model.
func (m *Model[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	params = append(params, m.embedding.Parameters()...)
	params = append(params, m.embedNorm.Parameters()...)
	params = append(params, m.encoder1.Parameters()...)
	params = append(params, m.projNorm.Parameters()...)
	params = append(params, m.projDense.Parameters()...)
	params = append(params, m.encoder2.Parameters()...)
	params = append(params, m.clsNorm1.Parameters()...)
	params = append(params, m.clsDense1.Parameters()...)
	params = append(params, m.clsNorm2.Parameters()...)
	params = append(params, m.clsDense2.Parameters()...)
	return params
}

// Forward maps a premise/hypothesis pair to raw class scores.
//
// Shapes:
//   - x1: premise token ids [batch, L1]
//   - x2: hypothesis token ids [batch, L2]
//   - mask1: additive attention bias for x1, [batch, L1]
//   - mask2: additive attention bias for x2, [batch, L2]
//
// Masks carry 0 at valid positions and a large negative value (e.g.
// -1e9) at padding positions; they are added to attention scores before
// softmax, not multiplied in afterwards.
//
// Returns logits [batch, Classes] with no output activation. Panics on
// shape disagreements or out-of-range token ids.
func (m *Model[B]) Forward(
	x1, x2 *tensor.Tensor[int32, B],
	mask1, mask2 *tensor.Tensor[float32, B],
) *tensor.Tensor[float32, B] {
	m.validateInputs(x1, x2, mask1, mask2)

	// Stage 1-2: shared embedding, normalization, context encoding
	e1 := m.embedNorm.Forward(m.embedding.Forward(x1))
	e2 := m.embedNorm.Forward(m.embedding.Forward(x2))
	enc1 := m.encoder1.Forward(e1) // [batch, L1, 2H]
	enc2 := m.encoder1.Forward(e2) // [batch, L2, 2H]

	// Stage 3: soft attention alignment
	x1Align, x2Align, _, _ := m.align(enc1, enc2, mask1, mask2)

	// Stage 4-5: submul fusion, projection, composition encoding
	comp1 := m.encoder2.Forward(m.compose(enc1, x1Align)) // [batch, L1, 2H]
	comp2 := m.encoder2.Forward(m.compose(enc2, x2Align)) // [batch, L2, 2H]

	// Stage 6: pooling removes the variable-length dimension
	agg1 := m.pool(comp1) // [batch, 4H]
	agg2 := m.pool(comp2) // [batch, 4H]
	agg := tensor.Cat([]*tensor.Tensor[float32, B]{agg1, agg2}, 1)

	// Stage 7: classifier head
	return m.classify(agg)
}

// align cross-attends the two encoded sequences.
//
// E = x1 · x2ᵀ gives raw similarity scores [batch, L1, L2]. Each
// direction adds the other sequence's mask as a bias before its softmax,
// so padding positions end up with ~0 weight:
//   - direction 1: softmax over L2 -> w1, x1Align = w1 · x2
//   - direction 2: softmax over L1 -> w2, x2Align = w2ᵀ · x1
//
// Returns the two aligned sequences and both weight tensors.
func (m *Model[B]) align(
	x1, x2 *tensor.Tensor[float32, B],
	mask1, mask2 *tensor.Tensor[float32, B],
) (x1Align, x2Align, w1, w2 *tensor.Tensor[float32, B]) {
	scores := x1.BatchMatMul(x2.Transpose(0, 2, 1)) // [batch, L1, L2]

	// Both directions read scores; when L1 is 1 the mask addition is
	// same-shape and the backend's unique-buffer fast path would reuse
	// the scores buffer for the first result.
	defer scores.Raw().ForceNonUnique()()

	// mask2 [batch, L2] broadcasts across the L1 axis
	w1 = scores.Add(mask2.Unsqueeze(1)).Softmax(-1)
	x1Align = w1.BatchMatMul(x2) // [batch, L1, 2H]

	// mask1 [batch, L1] broadcasts across the L2 axis
	w2 = scores.Add(mask1.Unsqueeze(2)).Softmax(1)
	x2Align = w2.Transpose(0, 2, 1).BatchMatMul(x1) // [batch, L2, 2H]

	return x1Align, x2Align, w1, w2
}

// compose fuses a sequence with its aligned counterpart and projects the
// result back to HiddenUnits width.
//
// The fused feature is [x, aligned, x*aligned, x-aligned] (4x the encoded
// width): the product and difference capture local entailment signal
// while the originals keep both full representations.
func (m *Model[B]) compose(x, aligned *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	// x is read by the product, the difference and the concat; keep the
	// same-shape elementwise ops from reusing its buffer in place.
	defer x.Raw().ForceNonUnique()()

	mul := x.Mul(aligned)
	sub := x.Sub(aligned)
	fused := tensor.Cat([]*tensor.Tensor[float32, B]{x, aligned, mul, sub}, 2)

	shape := fused.Shape() // [batch, seq, 8H]
	batch, seq, features := shape[0], shape[1], shape[2]

	out := m.projNorm.Forward(fused)
	out = m.projDrop.Forward(out)

	// Linear wants 2D input
	flat := out.Reshape(batch*seq, features)
	flat = m.projAct.Forward(m.projDense.Forward(flat))

	return flat.Reshape(batch, seq, m.cfg.HiddenUnits)
}

// pool collapses the time axis with average and max pooling and
// concatenates the results, [batch, seq, C] -> [batch, 2C].
func (m *Model[B]) pool(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	avg := x.MeanDim(1, false)
	max := x.MaxDim(1, false)
	return tensor.Cat([]*tensor.Tensor[float32, B]{avg, max}, 1)
}

// classify runs the dense head on the pooled aggregate and returns raw
// logits.
func (m *Model[B]) classify(agg *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := m.clsNorm1.Forward(agg)
	out = m.clsDrop1.Forward(out)
	out = m.clsAct.Forward(m.clsDense1.Forward(out))
	out = m.clsNorm2.Forward(out)
	out = m.clsDrop2.Forward(out)
	return m.clsDense2.Forward(out)
}

// validateInputs fails fast on shape disagreements between the four
// inputs.
func (m *Model[B]) validateInputs(
	x1, x2 *tensor.Tensor[int32, B],
	mask1, mask2 *tensor.Tensor[float32, B],
) {
	s1, s2 := x1.Shape(), x2.Shape()
	m1, m2 := mask1.Shape(), mask2.Shape()

	if len(s1) != 2 || len(s2) != 2 {
		panic(fmt.Sprintf("esim: token sequences must be 2D [batch, seq], got %v and %v", s1, s2))
	}
	if len(m1) != 2 || len(m2) != 2 {
		panic(fmt.Sprintf("esim: masks must be 2D [batch, seq], got %v and %v", m1, m2))
	}
	if s1[0] != s2[0] {
		panic(fmt.Sprintf("esim: batch size mismatch between sequences: %d vs %d", s1[0], s2[0]))
	}
	if !m1.Equal(s1) {
		panic(fmt.Sprintf("esim: mask1 shape %v does not match x1 shape %v", m1, s1))
	}
	if !m2.Equal(s2) {
		panic(fmt.Sprintf("esim: mask2 shape %v does not match x2 shape %v", m2, s2))
	}
}
