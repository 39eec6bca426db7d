package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/craigthomas/NLMT-sub001/model"
)

// Config holds the training configuration read from a YAML file.
type Config struct {
	Model     string  `yaml:"model"`      // lda, sparselda, hlda
	TopicNum  uint32  `yaml:"topic_num"`  // flat samplers only
	Alpha     float64 `yaml:"alpha"`      // document-topic smoothing
	Beta      float64 `yaml:"beta"`       // topic-word smoothing
	Gamma     float64 `yaml:"gamma"`      // hlda: nCRP concentration
	Eta       float64 `yaml:"eta"`        // hlda: stick-breaking prior
	Depth     uint32  `yaml:"depth"`      // hlda: maximum tree depth
	Seed      int64   `yaml:"seed"`       // RNG seed
	TrainIter int     `yaml:"train_iter"` // training sweeps
	InferIter int     `yaml:"infer_iter"` // inference sweeps
	TopWords  int     `yaml:"top_words"`  // words printed per topic
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Model:     "lda",
		TopicNum:  20,
		Alpha:     0.01,
		Beta:      0.01,
		Gamma:     1.0,
		Eta:       1.0,
		Depth:     3,
		Seed:      1,
		TrainIter: 100,
		InferIter: 20,
		TopWords:  10,
	}
}

// Load reads a YAML configuration file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ModelConfig converts the file options into sampler hyperparameters.
func (c Config) ModelConfig() model.Config {
	return model.Config{
		TopicNum: c.TopicNum,
		Alpha:    float32(c.Alpha),
		Beta:     float32(c.Beta),
		Gamma:    c.Gamma,
		Eta:      c.Eta,
		Depth:    c.Depth,
		Seed:     c.Seed,
	}
}
