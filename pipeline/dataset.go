// Package pipeline loads and cleans the scraped listings dataset.
package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Listing is one historical sale record from the scraped dataset.
type Listing struct {
	Price        float64 `json:"price"`
	Year         int     `json:"year"`
	Brand        string  `json:"brand"`
	Model        string  `json:"model"`
	Mileage      int     `json:"mileage"`
	CV           int     `json:"cv"`
	FuelType     string  `json:"fuel_type"`
	Transmission string  `json:"transmission"`
}

type DatasetConfig struct {
	Path string
	// Latin1 decodes Windows-1252 exports; the scraper emits accented
	// brand/model names in that encoding.
	Latin1 bool
}

var requiredColumns = []string{
	"price", "year", "brand", "model", "mileage", "cv", "fuel_type", "transmission",
}

// LoadDataset reads the listings CSV. Rows that fail to parse are skipped and
// counted; semantic validation is the cleaner's job.
func LoadDataset(config DatasetConfig) ([]Listing, int, error) {
	file, err := os.Open(config.Path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	var reader io.Reader = file
	if config.Latin1 {
		reader = transform.NewReader(file, charmap.Windows1252.NewDecoder())
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, 0, fmt.Errorf("dataset missing column %q", name)
		}
	}

	var listings []Listing
	skipped := 0
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		listing, err := parseListing(row, columns)
		if err != nil {
			skipped++
			continue
		}
		listings = append(listings, listing)
	}

	return listings, skipped, nil
}

func parseListing(row []string, columns map[string]int) (Listing, error) {
	field := func(name string) string {
		idx := columns[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	price, err := strconv.ParseFloat(field("price"), 64)
	if err != nil {
		return Listing{}, fmt.Errorf("price: %w", err)
	}
	year, err := strconv.Atoi(field("year"))
	if err != nil {
		return Listing{}, fmt.Errorf("year: %w", err)
	}
	mileage, err := strconv.Atoi(field("mileage"))
	if err != nil {
		return Listing{}, fmt.Errorf("mileage: %w", err)
	}
	cv, err := strconv.Atoi(field("cv"))
	if err != nil {
		return Listing{}, fmt.Errorf("cv: %w", err)
	}

	return Listing{
		Price:        price,
		Year:         year,
		Brand:        field("brand"),
		Model:        field("model"),
		Mileage:      mileage,
		CV:           cv,
		FuelType:     field("fuel_type"),
		Transmission: field("transmission"),
	}, nil
}
