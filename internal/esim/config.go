package esim

import "fmt"

// Config holds the construction parameters of the inference model.
type Config struct {
	VocabSize   int     // number of distinct token ids (embedding table rows)
	WordDims    int     // embedding vector width
	HiddenUnits int     // width of each recurrent direction (encoder output is 2x)
	DenseUnits  int     // width of the intermediate classifier dense layer
	Classes     int     // number of output classes
	Dropout     float32 // drop probability in [0, 1), 0 disables dropout
}

// Validate checks the configuration for construction errors.
func (c Config) Validate() error {
	if c.VocabSize <= 0 {
		return fmt.Errorf("esim: vocab size must be positive, got %d", c.VocabSize)
	}
	if c.WordDims <= 0 {
		return fmt.Errorf("esim: word dims must be positive, got %d", c.WordDims)
	}
	if c.HiddenUnits <= 0 {
		return fmt.Errorf("esim: hidden units must be positive, got %d", c.HiddenUnits)
	}
	if c.DenseUnits <= 0 {
		return fmt.Errorf("esim: dense units must be positive, got %d", c.DenseUnits)
	}
	if c.Classes <= 0 {
		return fmt.Errorf("esim: classes must be positive, got %d", c.Classes)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("esim: dropout must be in [0, 1), got %v", c.Dropout)
	}
	return nil
}
