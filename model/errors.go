package model

import "errors"

var (
	// rejected at construction, no partial state is retained
	ErrInvalidConfiguration = errors.New("model: invalid configuration")
	// a document carries a vocabulary id outside the trained range
	ErrInvalidToken = errors.New("model: token outside trained vocabulary")
	// inference requested before the iteration budget was exhausted
	ErrNotTrained = errors.New("model: inference requires a trained model")
)
