package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"autocentral/db"
	"autocentral/logging"
	"autocentral/ml"
	"autocentral/monitoring"
)

var (
	priceService *ml.PriceService
	activityFeed *monitoring.ActivityFeed

	// Overridable for tests.
	savePrediction   = db.SavePrediction
	queryPredictions = db.QueryPredictions
	loadTrainingLog  = db.LoadTrainingLog
)

func SetPriceService(service *ml.PriceService) {
	priceService = service
}

func SetActivityFeed(feed *monitoring.ActivityFeed) {
	activityFeed = feed
}

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/predict", handlePredict)
	mux.HandleFunc("GET /api/brands", handleBrands)
	mux.HandleFunc("GET /api/models", handleModels)
	mux.HandleFunc("GET /api/history", handleHistory)
	mux.HandleFunc("GET /api/training/log", handleTrainingLog)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "alive",
		"model_loaded": priceService != nil && priceService.Ready(),
		"usage":        "Send POST request to /api/predict with car details",
		"timestamp":    time.Now().Format(time.RFC3339),
	})
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	var rec ml.CarRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if priceService == nil {
		writeError(w, http.StatusServiceUnavailable, unavailableMessage)
		return
	}

	prediction, err := priceService.Predict(rec)
	if err != nil {
		if errors.Is(err, ml.ErrServiceUnavailable) {
			writeError(w, http.StatusServiceUnavailable, unavailableMessage)
			return
		}
		writeError(w, http.StatusBadRequest, "Prediction error: "+err.Error())
		return
	}

	// History and the activity feed are best-effort; the prediction is
	// already final.
	if err := savePrediction(prediction); err != nil {
		logging.L().Warnw("failed to record prediction", "error", err)
	}
	if activityFeed != nil {
		activityFeed.Publish(monitoring.PredictionEvent{
			Input:             prediction.Input,
			EstimatedPriceTND: prediction.EstimatedPriceTND,
			Timestamp:         time.Now(),
		})
	}

	writeJSON(w, http.StatusOK, prediction)
}

const unavailableMessage = "Model or encoders not loaded. Run the training pipeline first."

func handleBrands(w http.ResponseWriter, r *http.Request) {
	if priceService == nil {
		writeError(w, http.StatusServiceUnavailable, unavailableMessage)
		return
	}
	brands := priceService.BrandNames()
	if brands == nil {
		writeError(w, http.StatusServiceUnavailable, unavailableMessage)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"brands": brands,
		"count":  len(brands),
	})
}

func handleModels(w http.ResponseWriter, r *http.Request) {
	if priceService == nil {
		writeError(w, http.StatusServiceUnavailable, unavailableMessage)
		return
	}
	models := priceService.ModelNames()
	if models == nil {
		writeError(w, http.StatusServiceUnavailable, unavailableMessage)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": models,
		"count":  len(models),
	})
}

func handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	rows, err := queryPredictions(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": rows,
		"count":       len(rows),
	})
}

func handleTrainingLog(w http.ResponseWriter, r *http.Request) {
	logs, err := loadTrainingLog()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  logs,
		"count": len(logs),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
