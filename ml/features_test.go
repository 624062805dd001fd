package ml

import (
	"errors"
	"testing"
)

func TestEncodeFuelTotal(t *testing.T) {
	cases := map[string]int{
		"Essence": 0,
		"Diesel":  1,
		"Hybrid":  2,
		"GPL":     0,
		"essence": 0,
		"":        0,
	}
	for fuel, want := range cases {
		if got := EncodeFuel(fuel); got != want {
			t.Fatalf("EncodeFuel(%q) = %d, want %d", fuel, got, want)
		}
	}
}

func TestEncodeTransmissionBinary(t *testing.T) {
	if got := EncodeTransmission("Automatique"); got != 1 {
		t.Fatalf("expected 1 for Automatique, got %d", got)
	}
	for _, transmission := range []string{"Manuelle", "automatique", "CVT", ""} {
		if got := EncodeTransmission(transmission); got != 0 {
			t.Fatalf("expected 0 for %q, got %d", transmission, got)
		}
	}
}

func TestAgeDerivation(t *testing.T) {
	if got := Age(2020); got != ReferenceYear-2020 {
		t.Fatalf("unexpected age: %d", got)
	}
	// Years after the reference yield negative age, not an error.
	if got := Age(ReferenceYear + 2); got != -2 {
		t.Fatalf("expected -2, got %d", got)
	}
}

func TestBuildFeatureVectorOrder(t *testing.T) {
	rec := CarRecord{
		Year:         2020,
		Brand:        "Kia",
		Model:        "Rio",
		Mileage:      85000,
		CV:           5,
		FuelType:     "Essence",
		Transmission: "Manuelle",
	}
	values := RecordFeatureValues(rec, 7, 42)

	vector, err := BuildFeatureVector(values, TrainingFeatureNames())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{5, 85000, 5, 0, 0, 7, 42}
	if len(vector) != len(want) {
		t.Fatalf("unexpected vector length: %d", len(vector))
	}
	for i := range want {
		if vector[i] != want[i] {
			t.Fatalf("vector[%d] = %v, want %v", i, vector[i], want[i])
		}
	}
}

func TestBuildFeatureVectorReordersToPersistedOrder(t *testing.T) {
	values := map[string]float64{"a": 1, "b": 2, "c": 3}

	vector, err := BuildFeatureVector(values, []string{"c", "a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vector[0] != 3 || vector[1] != 1 || vector[2] != 2 {
		t.Fatalf("vector not in persisted order: %v", vector)
	}
}

func TestBuildFeatureVectorSchemaMismatch(t *testing.T) {
	values := map[string]float64{"year": 5}

	_, err := BuildFeatureVector(values, []string{"year", "mileage"})
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
