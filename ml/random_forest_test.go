package ml

import (
	"math"
	"path/filepath"
	"testing"
)

func trainingSet() ([][]float64, []float64) {
	// Price falls with age and mileage, two feature columns.
	features := [][]float64{
		{1, 20000},
		{2, 35000},
		{3, 60000},
		{5, 90000},
		{8, 140000},
		{10, 180000},
		{12, 220000},
		{15, 260000},
	}
	targets := []float64{52000, 46000, 39000, 31000, 22000, 16000, 12000, 9000}
	return features, targets
}

func TestRegressionTreeTrainPredict(t *testing.T) {
	features, targets := trainingSet()

	tree := NewRegressionTree(6, 1)
	if err := tree.Train(features, targets); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	young, err := tree.Predict([]float64{2, 30000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	old, err := tree.Predict([]float64{14, 250000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if young <= old {
		t.Fatalf("expected newer car to estimate higher: %v vs %v", young, old)
	}
}

func TestRandomForestTrainPredict(t *testing.T) {
	features, targets := trainingSet()

	forest := NewRandomForest(ForestConfig{Trees: 20, MaxDepth: 6, MinLeaf: 1, Seed: 42})
	if err := forest.Train(features, targets); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	estimate, err := forest.Predict([]float64{3, 60000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if estimate < 9000 || estimate > 52000 {
		t.Fatalf("estimate outside training range: %v", estimate)
	}
}

func TestRandomForestSaveLoadIdenticalPredictions(t *testing.T) {
	features, targets := trainingSet()

	forest := NewRandomForest(ForestConfig{Trees: 10, MaxDepth: 6, MinLeaf: 1, Seed: 7})
	if err := forest.Train(features, targets); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "car_price_model.json")
	if err := forest.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded := &RandomForest{}
	if err := loaded.Load(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, sample := range features {
		want, err := forest.Predict(sample)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := loaded.Predict(sample)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(want-got) != 0 {
			t.Fatalf("prediction drifted after reload: %v vs %v", want, got)
		}
	}
}

func TestPredictUntrained(t *testing.T) {
	forest := &RandomForest{}
	if _, err := forest.Predict([]float64{1, 2}); err == nil {
		t.Fatal("expected error for untrained model")
	}
}
