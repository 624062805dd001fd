package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listings.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestLoadDataset(t *testing.T) {
	path := writeDataset(t, `price,year,brand,model,mileage,cv,fuel_type,transmission
31000,2020,Kia,Rio,85000,5,Essence,Manuelle
54000,2022,Peugeot,208,30000,6,Diesel,Automatique
`)

	listings, skipped, err := LoadDataset(DatasetConfig{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("expected no skips, got %d", skipped)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}
	if listings[0].Brand != "Kia" || listings[0].Price != 31000 || listings[0].Mileage != 85000 {
		t.Fatalf("unexpected listing: %+v", listings[0])
	}
}

func TestLoadDatasetSkipsMalformedRows(t *testing.T) {
	path := writeDataset(t, `price,year,brand,model,mileage,cv,fuel_type,transmission
31000,2020,Kia,Rio,85000,5,Essence,Manuelle
notanumber,2020,Kia,Rio,85000,5,Essence,Manuelle
`)

	listings, skipped, err := LoadDataset(DatasetConfig{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 1 || skipped != 1 {
		t.Fatalf("expected 1 listing and 1 skip, got %d/%d", len(listings), skipped)
	}
}

func TestLoadDatasetMissingColumn(t *testing.T) {
	path := writeDataset(t, `price,year,brand,model,mileage,cv,fuel_type
31000,2020,Kia,Rio,85000,5,Essence
`)

	if _, _, err := LoadDataset(DatasetConfig{Path: path}); err == nil {
		t.Fatal("expected error for missing column")
	}
}

func TestLoadDatasetLatin1(t *testing.T) {
	// "Mégane" in Windows-1252: 0xE9 for é.
	content := []byte("price,year,brand,model,mileage,cv,fuel_type,transmission\n" +
		"42000,2019,Renault,M\xe9gane,95000,6,Diesel,Manuelle\n")
	path := filepath.Join(t.TempDir(), "listings.csv")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	listings, _, err := LoadDataset(DatasetConfig{Path: path, Latin1: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 1 || listings[0].Model != "Mégane" {
		t.Fatalf("charset decode failed: %+v", listings)
	}
}
