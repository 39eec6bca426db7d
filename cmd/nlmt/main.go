package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/craigthomas/NLMT-sub001/config"
	"github.com/craigthomas/NLMT-sub001/corpus"
	"github.com/craigthomas/NLMT-sub001/model"
)

var (
	cfgFile    string
	inputFile  string
	modelType  string
	topicNum   uint32
	iterations int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nlmt",
		Short: "Topic discovery with collapsed gibbs samplers",
	}
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Train a topic model on an integer-coded corpus",
		RunE:  runTrain,
	}
	trainCmd.Flags().StringVar(&cfgFile, "config", "", "YAML configuration file")
	trainCmd.Flags().StringVar(&inputFile, "input", "", "input training file")
	trainCmd.Flags().StringVar(&modelType, "model", "", "model type: lda, sparselda, hlda")
	trainCmd.Flags().Uint32Var(&topicNum, "k", 0, "number of topics")
	trainCmd.Flags().IntVar(&iterations, "iter", 0, "number of training sweeps")
	rootCmd.AddCommand(trainCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
	}
	// flags override the file
	if modelType != "" {
		cfg.Model = modelType
	}
	if topicNum > 0 {
		cfg.TopicNum = topicNum
	}
	if iterations > 0 {
		cfg.TrainIter = iterations
	}
	if inputFile == "" {
		return fmt.Errorf("an input training file is required")
	}

	// read training data
	data := &corpus.Corpus{}
	if err := data.Load(inputFile); err != nil {
		return err
	}

	ctor, err := model.GetModel(cfg.Model)
	if err != nil {
		return err
	}
	m, err := ctor(data, cfg.ModelConfig())
	if err != nil {
		return err
	}

	log.Infof("training %s for %d sweeps", cfg.Model, cfg.TrainIter)
	m.Train(cfg.TrainIter)

	printTopics(m, cfg)
	return nil
}

func printTopics(m model.Model, cfg config.Config) {
	if h, ok := m.(*model.HLDA); ok {
		for _, t := range h.Topics(cfg.TopWords, 1) {
			fmt.Printf("node %d (docs %d): %v\n", t.Id, t.DocCount, t.Terms)
		}
		return
	}
	for k := uint32(0); k < cfg.TopicNum; k += 1 {
		fmt.Printf("topic %d: %v\n", k, m.TopTerms(k, cfg.TopWords))
	}
}
