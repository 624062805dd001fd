package db

import (
	"database/sql"
	"errors"
	"time"

	"autocentral/ml"
	"autocentral/pipeline"
	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB initializes the SQLite database
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS listings (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        price REAL NOT NULL,
        year INTEGER NOT NULL,
        brand TEXT NOT NULL,
        model TEXT NOT NULL,
        mileage INTEGER NOT NULL,
        cv INTEGER NOT NULL,
        fuel_type TEXT NOT NULL,
        transmission TEXT NOT NULL,
        imported_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE(brand, model, year, mileage, cv, price)
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        year INTEGER NOT NULL,
        brand TEXT NOT NULL,
        model TEXT NOT NULL,
        mileage INTEGER NOT NULL,
        cv INTEGER NOT NULL,
        fuel_type TEXT NOT NULL,
        transmission TEXT NOT NULL,
        estimated_price_tnd INTEGER NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50),
        mae REAL,
        rmse REAL,
        r2 REAL,
        trained_at DATETIME,
        data_points INTEGER
    );
    `

	_, err = database.Exec(query)
	return err
}

func Close() error {
	if database == nil {
		return nil
	}
	return database.Close()
}

// SaveListings bulk-inserts cleaned listings; exact duplicates already stored
// are ignored.
func SaveListings(listings []pipeline.Listing) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if len(listings) == 0 {
		return nil
	}

	tx, err := database.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
        INSERT OR IGNORE INTO listings (
            price, year, brand, model, mileage, cv, fuel_type, transmission
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, listing := range listings {
		if _, err := stmt.Exec(
			listing.Price, listing.Year, listing.Brand, listing.Model,
			listing.Mileage, listing.CV, listing.FuelType, listing.Transmission,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SavePrediction records one served prediction for history queries.
func SavePrediction(prediction ml.Prediction) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	rec := prediction.Input
	_, err := database.Exec(`
        INSERT INTO predictions (
            year, brand, model, mileage, cv, fuel_type, transmission, estimated_price_tnd
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `,
		rec.Year, rec.Brand, rec.Model, rec.Mileage, rec.CV,
		rec.FuelType, rec.Transmission, prediction.EstimatedPriceTND,
	)
	return err
}

type PredictionRow struct {
	Input             ml.CarRecord `json:"input"`
	EstimatedPriceTND int          `json:"estimated_price_tnd"`
	CreatedAt         time.Time    `json:"created_at"`
}

// QueryPredictions returns the most recent served predictions.
func QueryPredictions(limit int) ([]PredictionRow, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := database.Query(`
        SELECT year, brand, model, mileage, cv, fuel_type, transmission,
               estimated_price_tnd, created_at
        FROM predictions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]PredictionRow, 0)
	for rows.Next() {
		var row PredictionRow
		if err := rows.Scan(
			&row.Input.Year, &row.Input.Brand, &row.Input.Model,
			&row.Input.Mileage, &row.Input.CV, &row.Input.FuelType,
			&row.Input.Transmission, &row.EstimatedPriceTND, &row.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

type TrainingLog struct {
	ModelName  string    `json:"model_name"`
	MAE        float64   `json:"mae"`
	RMSE       float64   `json:"rmse"`
	R2         float64   `json:"r2"`
	TrainedAt  time.Time `json:"trained_at"`
	DataPoints int       `json:"data_points"`
}

func SaveTrainingLog(log TrainingLog) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(`
        INSERT INTO training_log (model_name, mae, rmse, r2, trained_at, data_points)
        VALUES (?, ?, ?, ?, ?, ?)
    `, log.ModelName, log.MAE, log.RMSE, log.R2, log.TrainedAt, log.DataPoints)
	return err
}

func LoadTrainingLog() ([]TrainingLog, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := database.Query(`
        SELECT model_name, mae, rmse, r2, trained_at, data_points
        FROM training_log
        ORDER BY trained_at DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelName, &log.MAE, &log.RMSE, &log.R2, &log.TrainedAt, &log.DataPoints); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
