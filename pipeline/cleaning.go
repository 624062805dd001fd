package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// CleaningRule validates or corrects one listing. A returned error rejects the
// listing; a non-nil listing replaces it.
type CleaningRule interface {
	Apply(*Listing) (*Listing, error)
	Name() string
}

type QualityIssue struct {
	Type      string    `json:"type"`
	Severity  string    `json:"severity"` // low, medium, high
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Brand     string    `json:"brand"`
	Model     string    `json:"model"`
}

type DataCleaner struct {
	rules      []CleaningRule
	issues     []QualityIssue
	issuesLock sync.RWMutex

	stats     CleaningStats
	statsLock sync.RWMutex
}

type CleaningStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Passed         int64            `json:"passed"`
	Rejected       int64            `json:"rejected"`
	Corrected      int64            `json:"corrected"`
	Issues         map[string]int64 `json:"issues"`
	LastClean      time.Time        `json:"last_clean"`
}

func NewDataCleaner() *DataCleaner {
	cleaner := &DataCleaner{
		rules: make([]CleaningRule, 0),
		stats: CleaningStats{
			Issues: make(map[string]int64),
		},
	}

	cleaner.AddRule(NewTextNormalizationRule())
	cleaner.AddRule(NewPriceValidationRule())
	cleaner.AddRule(NewYearValidationRule())
	cleaner.AddRule(NewUsageValidationRule())
	cleaner.AddRule(NewDuplicateDetectionRule())

	return cleaner
}

func (dc *DataCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
}

func (dc *DataCleaner) Clean(listings []Listing) ([]Listing, []QualityIssue) {
	var cleaned []Listing
	var issues []QualityIssue

	dc.statsLock.Lock()
	defer dc.statsLock.Unlock()

	for i := range listings {
		dc.stats.TotalProcessed++

		listing := listings[i]
		original := listing
		var listingIssues []QualityIssue

		for _, rule := range dc.rules {
			corrected, err := rule.Apply(&listing)
			if err != nil {
				issue := QualityIssue{
					Type:      rule.Name(),
					Severity:  "high",
					Message:   err.Error(),
					Timestamp: time.Now(),
					Brand:     listing.Brand,
					Model:     listing.Model,
				}
				listingIssues = append(listingIssues, issue)
				dc.stats.Issues[rule.Name()]++
				continue
			}
			if corrected != nil {
				listing = *corrected
			}
		}

		if len(listingIssues) > 0 {
			dc.stats.Rejected++
			issues = append(issues, listingIssues...)
			dc.issuesLock.Lock()
			dc.issues = append(dc.issues, listingIssues...)
			dc.issuesLock.Unlock()
		} else {
			if original != listing {
				dc.stats.Corrected++
			}
			dc.stats.Passed++
			cleaned = append(cleaned, listing)
		}
	}

	dc.stats.LastClean = time.Now()

	return cleaned, issues
}

func (dc *DataCleaner) GetStats() CleaningStats {
	dc.statsLock.RLock()
	defer dc.statsLock.RUnlock()

	return dc.stats
}

// TextNormalizationRule trims stray whitespace on the string fields; the
// scraper occasionally pads them.
type TextNormalizationRule struct{}

func NewTextNormalizationRule() *TextNormalizationRule { return &TextNormalizationRule{} }

func (r *TextNormalizationRule) Name() string { return "text_normalization" }

func (r *TextNormalizationRule) Apply(listing *Listing) (*Listing, error) {
	corrected := *listing
	corrected.Brand = strings.TrimSpace(listing.Brand)
	corrected.Model = strings.TrimSpace(listing.Model)
	corrected.FuelType = strings.TrimSpace(listing.FuelType)
	corrected.Transmission = strings.TrimSpace(listing.Transmission)
	if corrected.Brand == "" || corrected.Model == "" {
		return nil, fmt.Errorf("empty brand or model")
	}
	return &corrected, nil
}

// PriceValidationRule rejects non-positive prices, which mark invalid or
// missing data in the scrape.
type PriceValidationRule struct{}

func NewPriceValidationRule() *PriceValidationRule { return &PriceValidationRule{} }

func (r *PriceValidationRule) Name() string { return "price_validation" }

func (r *PriceValidationRule) Apply(listing *Listing) (*Listing, error) {
	if listing.Price <= 0 {
		return nil, fmt.Errorf("non-positive price: %v", listing.Price)
	}
	return nil, nil
}

type YearValidationRule struct {
	minYear int
	maxYear int
}

func NewYearValidationRule() *YearValidationRule {
	return &YearValidationRule{minYear: 1960, maxYear: time.Now().Year() + 1}
}

func (r *YearValidationRule) Name() string { return "year_validation" }

func (r *YearValidationRule) Apply(listing *Listing) (*Listing, error) {
	if listing.Year < r.minYear || listing.Year > r.maxYear {
		return nil, fmt.Errorf("year out of range: %d", listing.Year)
	}
	return nil, nil
}

// UsageValidationRule rejects impossible mileage and horsepower values.
type UsageValidationRule struct{}

func NewUsageValidationRule() *UsageValidationRule { return &UsageValidationRule{} }

func (r *UsageValidationRule) Name() string { return "usage_validation" }

func (r *UsageValidationRule) Apply(listing *Listing) (*Listing, error) {
	if listing.Mileage < 0 || listing.Mileage > 1_500_000 {
		return nil, fmt.Errorf("mileage out of range: %d", listing.Mileage)
	}
	if listing.CV < 0 || listing.CV > 100 {
		return nil, fmt.Errorf("cv out of range: %d", listing.CV)
	}
	return nil, nil
}

// DuplicateDetectionRule rejects exact repeats of a listing already seen in
// this run.
type DuplicateDetectionRule struct {
	seen map[string]struct{}
}

func NewDuplicateDetectionRule() *DuplicateDetectionRule {
	return &DuplicateDetectionRule{seen: make(map[string]struct{})}
}

func (r *DuplicateDetectionRule) Name() string { return "duplicate_detection" }

func (r *DuplicateDetectionRule) Apply(listing *Listing) (*Listing, error) {
	key := fmt.Sprintf("%s|%s|%d|%d|%d|%v",
		listing.Brand, listing.Model, listing.Year, listing.Mileage, listing.CV, listing.Price)
	if _, ok := r.seen[key]; ok {
		return nil, fmt.Errorf("duplicate listing")
	}
	r.seen[key] = struct{}{}
	return nil, nil
}
