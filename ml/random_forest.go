package ml

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
)

type ForestConfig struct {
	Trees    int   `json:"trees"`
	MaxDepth int   `json:"max_depth"`
	MinLeaf  int   `json:"min_leaf"`
	Seed     int64 `json:"seed"`
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:    100,
		MaxDepth: 12,
		MinLeaf:  2,
		Seed:     42,
	}
}

// RandomForest bags regression trees over bootstrap samples and averages
// their estimates.
type RandomForest struct {
	config ForestConfig
	trees  []*RegressionTree
}

func NewRandomForest(config ForestConfig) *RandomForest {
	if config.Trees <= 0 {
		config.Trees = 100
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = 12
	}
	if config.MinLeaf <= 0 {
		config.MinLeaf = 2
	}
	return &RandomForest{config: config}
}

func (rf *RandomForest) Train(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	if rf.config.Trees <= 0 {
		rf.config = DefaultForestConfig()
	}

	rnd := rand.New(rand.NewSource(rf.config.Seed))
	trees := make([]*RegressionTree, 0, rf.config.Trees)
	for t := 0; t < rf.config.Trees; t++ {
		sampleFeatures := make([][]float64, len(features))
		sampleTargets := make([]float64, len(targets))
		for i := range features {
			idx := rnd.Intn(len(features))
			sampleFeatures[i] = features[idx]
			sampleTargets[i] = targets[idx]
		}

		tree := NewRegressionTree(rf.config.MaxDepth, rf.config.MinLeaf)
		if err := tree.Train(sampleFeatures, sampleTargets); err != nil {
			return err
		}
		trees = append(trees, tree)
	}

	rf.trees = trees
	return nil
}

func (rf *RandomForest) Predict(features []float64) (float64, error) {
	if len(rf.trees) == 0 {
		return 0, errors.New("model not trained")
	}
	sum := 0.0
	for _, tree := range rf.trees {
		value, err := tree.Predict(features)
		if err != nil {
			return 0, err
		}
		sum += value
	}
	return sum / float64(len(rf.trees)), nil
}

type forestArtifact struct {
	Config ForestConfig `json:"config"`
	Trees  [][]treeNode `json:"trees"`
}

func (rf *RandomForest) Save(path string) error {
	if len(rf.trees) == 0 {
		return errors.New("model not trained")
	}
	artifact := forestArtifact{Config: rf.config, Trees: make([][]treeNode, len(rf.trees))}
	for i, tree := range rf.trees {
		artifact.Trees[i] = tree.nodes
	}
	payload, err := json.Marshal(artifact)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (rf *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact forestArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return err
	}
	trees := make([]*RegressionTree, len(artifact.Trees))
	for i, nodes := range artifact.Trees {
		trees[i] = &RegressionTree{nodes: nodes}
	}
	rf.config = artifact.Config
	rf.trees = trees
	return nil
}
