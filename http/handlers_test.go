package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autocentral/db"
	"autocentral/ml"
)

func TestHandleHealth(t *testing.T) {
	mux := setupPredictTest(t, &fakePredictor{value: 1000})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["status"] != "alive" {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
	if payload["model_loaded"] != true {
		t.Fatalf("expected model_loaded true, got %v", payload["model_loaded"])
	}
}

func TestHandleHealthModelNotLoaded(t *testing.T) {
	mux := setupPredictTest(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["model_loaded"] != false {
		t.Fatalf("expected model_loaded false, got %v", payload["model_loaded"])
	}
}

func TestHandleBrands(t *testing.T) {
	mux := setupPredictTest(t, &fakePredictor{value: 1000})

	req := httptest.NewRequest(http.MethodGet, "/api/brands", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var payload struct {
		Brands []string `json:"brands"`
		Count  int      `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload.Count != 2 || payload.Brands[0] != "Kia" {
		t.Fatalf("unexpected brands: %+v", payload)
	}
}

func TestHandleBrandsUnavailable(t *testing.T) {
	mux := setupPredictTest(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/brands", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestHandleHistory(t *testing.T) {
	mux := setupPredictTest(t, &fakePredictor{value: 1000})

	queryPredictions = func(limit int) ([]db.PredictionRow, error) {
		return []db.PredictionRow{
			{
				Input:             ml.CarRecord{Year: 2020, Brand: "Kia", Model: "Rio"},
				EstimatedPriceTND: 31000,
				CreatedAt:         time.Now(),
			},
		}, nil
	}
	defer func() { queryPredictions = db.QueryPredictions }()

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=10", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var payload struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload.Count != 1 {
		t.Fatalf("expected 1 prediction, got %d", payload.Count)
	}
}
