package model

import (
	"fmt"

	"github.com/craigthomas/NLMT-sub001/corpus"
)

var constructors = make(map[string]ModelCtor)

// the common interface topic samplers should follow
type Model interface {
	// train the model for iter full gibbs sweeps
	Train(iter int)
	// perform a single gibbs sweep over the corpus
	Step()
	// estimate the topic mixture of an unseen integer-coded document
	// without mutating the trained model
	Infer(doc []uint32, iter int) ([]float32, error)
	// ranked vocabulary ids for one topic, ties broken by ascending id
	TopTerms(topic uint32, n int) []uint32
}

// sampler lifecycle; sampling never transitions back to initialized
// and inference is only legal once the iteration budget is exhausted
type state uint8

const (
	stateUninitialized state = iota
	stateInitialized
	stateSampling
	stateConverged
)

// new topic samplers should register themselves using this function
func Register(modelType string, m ModelCtor) {
	constructors[modelType] = m
}

type ModelCtor func(dat *corpus.Corpus, cfg Config) (Model, error)

func GetModel(modelType string) (ModelCtor, error) {
	if _, ok := constructors[modelType]; !ok {
		return nil, fmt.Errorf("model %s not registered", modelType)
	}
	return constructors[modelType], nil
}
