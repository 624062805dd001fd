package ml

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func trainedBundle(t *testing.T) *ModelArtifactBundle {
	t.Helper()

	brands := []string{"Kia", "Kia", "Peugeot", "Peugeot", "Renault", "Renault", "Volkswagen", "Volkswagen"}
	models := []string{"Rio", "Rio", "208", "208", "Clio", "Clio", "Golf", "Golf"}
	brandEncoder := FitCategoryEncoder(brands)
	modelEncoder := FitCategoryEncoder(models)

	order := TrainingFeatureNames()
	records := []CarRecord{
		{Year: 2023, Mileage: 20000, CV: 5, FuelType: "Essence", Transmission: "Manuelle"},
		{Year: 2022, Mileage: 45000, CV: 6, FuelType: "Diesel", Transmission: "Manuelle"},
		{Year: 2019, Mileage: 90000, CV: 5, FuelType: "Essence", Transmission: "Automatique"},
		{Year: 2016, Mileage: 150000, CV: 7, FuelType: "Diesel", Transmission: "Manuelle"},
		{Year: 2013, Mileage: 190000, CV: 4, FuelType: "Essence", Transmission: "Manuelle"},
		{Year: 2010, Mileage: 240000, CV: 6, FuelType: "Diesel", Transmission: "Automatique"},
		{Year: 2008, Mileage: 280000, CV: 5, FuelType: "Essence", Transmission: "Manuelle"},
		{Year: 2005, Mileage: 320000, CV: 4, FuelType: "Essence", Transmission: "Manuelle"},
	}
	targets := []float64{68000, 57000, 41000, 30000, 21000, 15000, 11000, 8000}

	features := make([][]float64, len(records))
	for i, rec := range records {
		brandCode, err := brandEncoder.Encode(brands[i])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		modelCode, err := modelEncoder.Encode(models[i])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// Training uses raw year under the "year" column.
		values := RecordFeatureValues(rec, brandCode, modelCode)
		values["year"] = float64(rec.Year)
		vector, err := BuildFeatureVector(values, order)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		features[i] = vector
	}

	forest := NewRandomForest(ForestConfig{Trees: 10, MaxDepth: 6, MinLeaf: 1, Seed: 1})
	if err := forest.Train(features, targets); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return &ModelArtifactBundle{
		Model:        forest,
		BrandEncoder: brandEncoder,
		ModelEncoder: modelEncoder,
		FeatureNames: order,
	}
}

func TestBundleSaveLoadRoundTrip(t *testing.T) {
	bundle := trainedBundle(t)
	dir := t.TempDir()

	if err := bundle.Save(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded, err := LoadBundle(dir, "random_forest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sample := []float64{2020, 85000, 5, 0, 0, 0, 3}
	want, err := bundle.Model.Predict(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := loaded.Model.Predict(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want != got {
		t.Fatalf("prediction drifted after reload: %v vs %v", want, got)
	}

	wantCode, _ := bundle.BrandEncoder.Encode("Kia")
	gotCode, err := loaded.BrandEncoder.Encode("Kia")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wantCode != gotCode {
		t.Fatalf("brand code drifted after reload: %d vs %d", wantCode, gotCode)
	}
}

func TestLoadBundleMissingArtifact(t *testing.T) {
	bundle := trainedBundle(t)
	dir := t.TempDir()

	if err := bundle.Save(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, FeatureNamesFile)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := LoadBundle(dir, "random_forest")
	if !errors.Is(err, ErrBundleIncomplete) {
		t.Fatalf("expected ErrBundleIncomplete, got %v", err)
	}
}

func TestLoadBundleEmptyDir(t *testing.T) {
	_, err := LoadBundle(t.TempDir(), "random_forest")
	if !errors.Is(err, ErrBundleIncomplete) {
		t.Fatalf("expected ErrBundleIncomplete, got %v", err)
	}
}
