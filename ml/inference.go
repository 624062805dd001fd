package ml

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrServiceUnavailable = errors.New("model artifacts not loaded")

type Prediction struct {
	Input             CarRecord `json:"input"`
	EstimatedPriceTND int       `json:"estimated_price_tnd"`
	Message           string    `json:"message"`
	Timestamp         string    `json:"timestamp"`
}

// PriceService answers single-record price queries against an immutable
// bundle snapshot. Concurrent requests share the snapshot without locking;
// the mutex only guards the snapshot swap on reload.
type PriceService struct {
	mu     sync.RWMutex
	bundle *ModelArtifactBundle
	cache  *lru.Cache[string, int]
}

func NewPriceService(cacheSize int) *PriceService {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, _ := lru.New[string, int](cacheSize)
	return &PriceService{cache: cache}
}

// SetBundle swaps in a complete bundle snapshot and drops cached prices
// computed against the previous one.
func (s *PriceService) SetBundle(bundle *ModelArtifactBundle) {
	s.mu.Lock()
	s.bundle = bundle
	s.cache.Purge()
	s.mu.Unlock()
}

func (s *PriceService) Ready() bool {
	return s.snapshot() != nil
}

func (s *PriceService) snapshot() *ModelArtifactBundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bundle := s.bundle
	if bundle == nil || bundle.Model == nil || bundle.BrandEncoder == nil ||
		bundle.ModelEncoder == nil || len(bundle.FeatureNames) == 0 {
		return nil
	}
	return bundle
}

// BrandNames returns the trained brand vocabulary, or nil when no bundle is
// loaded.
func (s *PriceService) BrandNames() []string {
	bundle := s.snapshot()
	if bundle == nil {
		return nil
	}
	return bundle.BrandEncoder.Classes()
}

func (s *PriceService) ModelNames() []string {
	bundle := s.snapshot()
	if bundle == nil {
		return nil
	}
	return bundle.ModelEncoder.Classes()
}

func (s *PriceService) Predict(rec CarRecord) (Prediction, error) {
	bundle := s.snapshot()
	if bundle == nil {
		return Prediction{}, ErrServiceUnavailable
	}

	key := cacheKey(rec)
	if price, ok := s.cache.Get(key); ok {
		return newPrediction(rec, price), nil
	}

	brandCode, err := bundle.BrandEncoder.Encode(rec.Brand)
	if err != nil {
		if !errors.Is(err, ErrUnknownCategory) {
			return Prediction{}, fmt.Errorf("prediction error: %w", err)
		}
		brandCode = UnknownCategoryCode
	}
	modelCode, err := bundle.ModelEncoder.Encode(rec.Model)
	if err != nil {
		if !errors.Is(err, ErrUnknownCategory) {
			return Prediction{}, fmt.Errorf("prediction error: %w", err)
		}
		modelCode = UnknownCategoryCode
	}

	vector, err := BuildFeatureVector(RecordFeatureValues(rec, brandCode, modelCode), bundle.FeatureNames)
	if err != nil {
		return Prediction{}, err
	}

	raw, err := bundle.Model.Predict(vector)
	if err != nil {
		return Prediction{}, fmt.Errorf("prediction error: %w", err)
	}

	price := int(math.Round(math.Max(0, raw)))
	s.cache.Add(key, price)
	return newPrediction(rec, price), nil
}

func newPrediction(rec CarRecord, price int) Prediction {
	return Prediction{
		Input:             rec,
		EstimatedPriceTND: price,
		Message:           "Prediction successful",
		Timestamp:         time.Now().Format(time.RFC3339),
	}
}

func cacheKey(rec CarRecord) string {
	return fmt.Sprintf("%d|%s|%s|%d|%d|%s|%s",
		rec.Year, rec.Brand, rec.Model, rec.Mileage, rec.CV, rec.FuelType, rec.Transmission)
}
