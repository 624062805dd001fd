package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"autocentral/db"
	"autocentral/ml"
	"autocentral/pipeline"
)

func main() {
	dataPath := flag.String("data", "", "listings CSV path")
	latin1 := flag.Bool("latin1", false, "decode CSV as Windows-1252")
	modelDir := flag.String("model_dir", "./models", "artifact output directory")
	trees := flag.Int("trees", 100, "number of trees")
	maxDepth := flag.Int("max_depth", 12, "max tree depth")
	minLeaf := flag.Int("min_leaf", 2, "min samples per leaf")
	testRatio := flag.Float64("test_ratio", 0.2, "test ratio")
	seed := flag.Int64("seed", 42, "random seed")
	dbPath := flag.String("db", "", "optional sqlite path for listings and training log")
	flag.Parse()

	if *dataPath == "" {
		log.Fatal("data is required")
	}

	listings, skipped, err := pipeline.LoadDataset(pipeline.DatasetConfig{Path: *dataPath, Latin1: *latin1})
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	log.Printf("loaded %d listings (%d rows skipped)", len(listings), skipped)

	cleaner := pipeline.NewDataCleaner()
	cleaned, issues := cleaner.Clean(listings)
	stats := cleaner.GetStats()
	log.Printf("cleaning: passed=%d rejected=%d corrected=%d issues=%d",
		stats.Passed, stats.Rejected, stats.Corrected, len(issues))
	if len(cleaned) == 0 {
		log.Fatal("no usable listings after cleaning")
	}

	brands := make([]string, len(cleaned))
	models := make([]string, len(cleaned))
	for i, listing := range cleaned {
		brands[i] = listing.Brand
		models[i] = listing.Model
	}
	brandEncoder := ml.FitCategoryEncoder(brands)
	modelEncoder := ml.FitCategoryEncoder(models)
	log.Printf("encoders fitted: %d brands, %d models", brandEncoder.Len(), modelEncoder.Len())

	order := ml.TrainingFeatureNames()
	features := make([][]float64, len(cleaned))
	targets := make([]float64, len(cleaned))
	for i, listing := range cleaned {
		brandCode, err := brandEncoder.Encode(listing.Brand)
		if err != nil {
			log.Fatalf("failed to encode brand: %v", err)
		}
		modelCode, err := modelEncoder.Encode(listing.Model)
		if err != nil {
			log.Fatalf("failed to encode model: %v", err)
		}
		vector, err := ml.BuildFeatureVector(featureRow(listing, brandCode, modelCode), order)
		if err != nil {
			log.Fatalf("failed to build feature vector: %v", err)
		}
		features[i] = vector
		targets[i] = listing.Price
	}

	trainX, trainY, testX, testY := splitDataset(features, targets, *testRatio, *seed)
	log.Printf("training set: %d samples, test set: %d samples", len(trainX), len(testX))

	forest := ml.NewRandomForest(ml.ForestConfig{
		Trees:    *trees,
		MaxDepth: *maxDepth,
		MinLeaf:  *minLeaf,
		Seed:     *seed,
	})
	if err := forest.Train(trainX, trainY); err != nil {
		log.Fatalf("failed to train model: %v", err)
	}

	mae, rmse, r2 := evaluateModel(forest, testX, testY)
	log.Printf("MAE=%.2f RMSE=%.2f R2=%.4f", mae, rmse, r2)

	bundle := &ml.ModelArtifactBundle{
		Model:        forest,
		BrandEncoder: brandEncoder,
		ModelEncoder: modelEncoder,
		FeatureNames: order,
	}
	if err := bundle.Save(*modelDir); err != nil {
		log.Fatalf("failed to save bundle: %v", err)
	}

	if *dbPath != "" {
		if err := db.InitDB(*dbPath); err != nil {
			log.Fatalf("failed to initialize database: %v", err)
		}
		defer db.Close()
		if err := db.SaveListings(cleaned); err != nil {
			log.Printf("failed to store listings: %v", err)
		}
		if err := db.SaveTrainingLog(db.TrainingLog{
			ModelName:  "random_forest",
			MAE:        mae,
			RMSE:       rmse,
			R2:         r2,
			TrainedAt:  time.Now().UTC(),
			DataPoints: len(trainX),
		}); err != nil {
			log.Printf("failed to store training log: %v", err)
		}
	}

	fmt.Printf("model bundle saved to %s\n", *modelDir)
}

// featureRow builds the training row. Raw year goes in the "year" column;
// only serving substitutes age there.
func featureRow(listing pipeline.Listing, brandCode, modelCode int) map[string]float64 {
	return map[string]float64{
		"year":          float64(listing.Year),
		"mileage":       float64(listing.Mileage),
		"cv":            float64(listing.CV),
		"fuel_type":     float64(ml.EncodeFuel(listing.FuelType)),
		"transmission":  float64(ml.EncodeTransmission(listing.Transmission)),
		"brand_encoded": float64(brandCode),
		"model_encoded": float64(modelCode),
	}
}

func splitDataset(features [][]float64, targets []float64, testRatio float64, seed int64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(features))

	split := int(math.Round(float64(len(features)) * (1 - testRatio)))
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, targets[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, targets[idx])
		}
	}
	return trainX, trainY, testX, testY
}

func evaluateModel(model ml.Predictor, testX [][]float64, testY []float64) (mae, rmse, r2 float64) {
	if len(testX) == 0 {
		return 0, 0, 0
	}

	var absSum, sqSum float64
	for i, sample := range testX {
		estimate, err := model.Predict(sample)
		if err != nil {
			continue
		}
		diff := estimate - testY[i]
		absSum += math.Abs(diff)
		sqSum += diff * diff
	}

	n := float64(len(testX))
	mae = absSum / n
	rmse = math.Sqrt(sqSum / n)

	var meanY float64
	for _, y := range testY {
		meanY += y
	}
	meanY /= n

	var totalSS float64
	for _, y := range testY {
		diff := y - meanY
		totalSS += diff * diff
	}
	if totalSS > 0 {
		r2 = 1 - sqSum/totalSS
	}
	return mae, rmse, r2
}
