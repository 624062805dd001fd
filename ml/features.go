package ml

import (
	"errors"
	"fmt"
)

// ReferenceYear is the year the training data was prepared against. The model
// is trained on age-since-reference, so this must match the training pipeline.
const ReferenceYear = 2025

// UnknownCategoryCode is the sentinel fed to the model for brand/model
// strings never seen during training. It sits below every trained code, so
// the trees route it to a boundary split instead of a real category.
const UnknownCategoryCode = -1

type CarRecord struct {
	Year         int    `json:"year"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Mileage      int    `json:"mileage"`
	CV           int    `json:"cv"`
	FuelType     string `json:"fuel_type"`
	Transmission string `json:"transmission"`
}

var ErrSchemaMismatch = errors.New("feature schema mismatch")

// TrainingFeatureNames is the column order the model is trained on. The
// "year" column actually carries age (ReferenceYear - year) at serving time;
// the name is kept as-is for compatibility with persisted models.
func TrainingFeatureNames() []string {
	return []string{
		"year",
		"mileage",
		"cv",
		"fuel_type",
		"transmission",
		"brand_encoded",
		"model_encoded",
	}
}

var fuelCodes = map[string]int{
	"Essence": 0,
	"Diesel":  1,
	"Hybrid":  2,
}

// EncodeFuel maps a fuel label to its trained code. Unrecognized labels fall
// back to Essence.
func EncodeFuel(fuel string) int {
	if code, ok := fuelCodes[fuel]; ok {
		return code
	}
	return 0
}

// EncodeTransmission is 1 for exactly "Automatique", 0 for everything else.
func EncodeTransmission(transmission string) int {
	if transmission == "Automatique" {
		return 1
	}
	return 0
}

func Age(year int) int {
	return ReferenceYear - year
}

// BuildFeatureVector lays out values in the persisted column order. Every
// name in the order must be present in values.
func BuildFeatureVector(values map[string]float64, order []string) ([]float64, error) {
	if len(order) == 0 {
		return nil, errors.New("feature order is empty")
	}
	vector := make([]float64, len(order))
	for i, name := range order {
		value, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing field %q", ErrSchemaMismatch, name)
		}
		vector[i] = value
	}
	return vector, nil
}

// RecordFeatureValues derives the named feature values for one serving-time
// record. Note the age-under-"year" naming carried over from training.
func RecordFeatureValues(rec CarRecord, brandCode, modelCode int) map[string]float64 {
	return map[string]float64{
		"year":          float64(Age(rec.Year)),
		"mileage":       float64(rec.Mileage),
		"cv":            float64(rec.CV),
		"fuel_type":     float64(EncodeFuel(rec.FuelType)),
		"transmission":  float64(EncodeTransmission(rec.Transmission)),
		"brand_encoded": float64(brandCode),
		"model_encoded": float64(modelCode),
	}
}
