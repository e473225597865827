// Package esim provides the public API for the enhanced sequential
// inference model: a premise/hypothesis classifier built from shared
// embedding, bidirectional recurrent encoding, soft attention alignment,
// submul composition and dual-pooling aggregation.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	model, err := esim.New(esim.Config{
//	    VocabSize:   10000,
//	    WordDims:    300,
//	    HiddenUnits: 300,
//	    DenseUnits:  300,
//	    Classes:     3,
//	    Dropout:     0.5,
//	}, backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	logits := model.Forward(premise, hypothesis, mask1, mask2)
package esim

import (
	"github.com/esim-ml/esim/internal/esim"
	"github.com/esim-ml/esim/internal/tensor"
)

// Config holds the construction parameters of the model.
type Config = esim.Config

// Model is the inference model.
type Model[B tensor.Backend] = esim.Model[B]

// New constructs a model from the given configuration. Returns an error
// if the configuration is invalid.
func New[B tensor.Backend](cfg Config, backend B) (*Model[B], error) {
	return esim.New(cfg, backend)
}
