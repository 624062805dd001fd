package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrBundleIncomplete = errors.New("model artifact bundle incomplete")

// Artifact file names inside the model directory. The four files are one
// versioned unit: mixing a model with encoders or an ordering from a
// different training run silently corrupts predictions.
const (
	ModelFile        = "car_price_model.json"
	BrandEncoderFile = "brand_encoder.json"
	ModelEncoderFile = "model_encoder.json"
	FeatureNamesFile = "feature_names.json"
)

type ModelArtifactBundle struct {
	Model        Predictor
	BrandEncoder *CategoryEncoder
	ModelEncoder *CategoryEncoder
	FeatureNames []string
}

func (b *ModelArtifactBundle) Save(dir string) error {
	if b.Model == nil || b.BrandEncoder == nil || b.ModelEncoder == nil {
		return errors.New("bundle not fully populated")
	}
	if len(b.FeatureNames) == 0 {
		return errors.New("feature names empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := b.Model.Save(filepath.Join(dir, ModelFile)); err != nil {
		return err
	}
	if err := b.BrandEncoder.Save(filepath.Join(dir, BrandEncoderFile)); err != nil {
		return err
	}
	if err := b.ModelEncoder.Save(filepath.Join(dir, ModelEncoderFile)); err != nil {
		return err
	}

	// Written last: a bundle without the ordering file never passes the
	// load gate, so readers cannot observe a half-written artifact set.
	payload, err := json.Marshal(b.FeatureNames)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, FeatureNamesFile), payload, 0o600)
}

// LoadBundle existence-checks all four artifacts before reading any of them.
// A missing file means the service stays unavailable rather than crashing.
func LoadBundle(dir, modelType string) (*ModelArtifactBundle, error) {
	for _, name := range []string{ModelFile, BrandEncoderFile, ModelEncoderFile, FeatureNamesFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBundleIncomplete, name)
		}
	}

	model, err := LoadModel(modelType, filepath.Join(dir, ModelFile))
	if err != nil {
		return nil, err
	}
	brandEncoder, err := LoadCategoryEncoder(filepath.Join(dir, BrandEncoderFile))
	if err != nil {
		return nil, err
	}
	modelEncoder, err := LoadCategoryEncoder(filepath.Join(dir, ModelEncoderFile))
	if err != nil {
		return nil, err
	}

	payload, err := os.ReadFile(filepath.Join(dir, FeatureNamesFile))
	if err != nil {
		return nil, err
	}
	var featureNames []string
	if err := json.Unmarshal(payload, &featureNames); err != nil {
		return nil, err
	}
	if len(featureNames) == 0 {
		return nil, fmt.Errorf("%w: empty feature order", ErrBundleIncomplete)
	}

	return &ModelArtifactBundle{
		Model:        model,
		BrandEncoder: brandEncoder,
		ModelEncoder: modelEncoder,
		FeatureNames: featureNames,
	}, nil
}
