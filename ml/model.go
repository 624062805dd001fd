package ml

// Predictor is the opaque regression contract. Any technique that fits the
// feature table and returns a scalar estimate is conformant.
type Predictor interface {
	Train(features [][]float64, targets []float64) error
	Predict(features []float64) (float64, error)
	Save(path string) error
	Load(path string) error
}
