package model

import "fmt"

// Config carries the hyperparameters recognized by the samplers.
// TopicNum only applies to the flat samplers; Gamma, Eta and Depth
// only to the hierarchical one.
type Config struct {
	TopicNum uint32  // number of topics K
	Alpha    float32 // document-topic smoothing
	Beta     float32 // topic-word smoothing
	Gamma    float64 // nCRP new-child concentration
	Eta      float64 // stick-breaking level prior
	Depth    uint32  // maximum tree depth
	Seed     int64   // RNG seed, identical seeds give identical chains
}

// validateFlat checks the options shared by the flat samplers
func (cfg Config) validateFlat() error {
	if cfg.TopicNum == 0 {
		return fmt.Errorf("%w: topic number must be positive", ErrInvalidConfiguration)
	}
	if cfg.Alpha <= 0 || cfg.Beta <= 0 {
		return fmt.Errorf("%w: alpha and beta must be positive", ErrInvalidConfiguration)
	}
	return nil
}

// validateHierarchical checks the options used by the tree sampler
func (cfg Config) validateHierarchical() error {
	if cfg.Depth < 2 {
		return fmt.Errorf("%w: tree depth must be at least 2", ErrInvalidConfiguration)
	}
	if cfg.Beta <= 0 {
		return fmt.Errorf("%w: beta must be positive", ErrInvalidConfiguration)
	}
	if cfg.Gamma <= 0 || cfg.Eta <= 0 {
		return fmt.Errorf("%w: gamma and eta must be positive", ErrInvalidConfiguration)
	}
	return nil
}
