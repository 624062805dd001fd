package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

var ErrUnknownCategory = errors.New("unknown category")

// CategoryEncoder maps a fixed vocabulary of category strings to dense
// integer codes. Codes are assigned over the sorted vocabulary, so they are
// stable within one fit but not across refits with different data.
type CategoryEncoder struct {
	codes   map[string]int
	classes []string
}

func FitCategoryEncoder(names []string) *CategoryEncoder {
	distinct := make(map[string]struct{}, len(names))
	for _, name := range names {
		distinct[name] = struct{}{}
	}
	classes := make([]string, 0, len(distinct))
	for name := range distinct {
		classes = append(classes, name)
	}
	sort.Strings(classes)

	codes := make(map[string]int, len(classes))
	for code, name := range classes {
		codes[name] = code
	}
	return &CategoryEncoder{codes: codes, classes: classes}
}

func (e *CategoryEncoder) Encode(name string) (int, error) {
	code, ok := e.codes[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return code, nil
}

// Classes returns the vocabulary in code order.
func (e *CategoryEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

func (e *CategoryEncoder) Len() int {
	return len(e.classes)
}

func (e *CategoryEncoder) Save(path string) error {
	if len(e.classes) == 0 {
		return errors.New("encoder not fitted")
	}
	payload, err := json.Marshal(e.classes)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func LoadCategoryEncoder(path string) (*CategoryEncoder, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var classes []string
	if err := json.Unmarshal(payload, &classes); err != nil {
		return nil, err
	}
	codes := make(map[string]int, len(classes))
	for code, name := range classes {
		codes[name] = code
	}
	return &CategoryEncoder{codes: codes, classes: classes}, nil
}
