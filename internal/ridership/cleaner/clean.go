package cleaner

import (
	"github.com/ridership3d/pkg/ridership/models"
)

// Result is the outcome of cleaning one decoded table.
type Result struct {
	Records          []models.StationRecord
	CoercionFailures map[string]int
	Filter           FilterReport
}

// Clean runs schema validation, normalization and the null policy of
// variant over table.
func Clean(table *models.RawTable, variant models.Variant) (*Result, error) {
	if err := ValidateSchema(table.Headers, variant.Schema); err != nil {
		return nil, err
	}

	rows, normalized := Normalize(table, variant.Schema)
	records, filtered, err := ApplyNullPolicy(rows, variant.Policy)
	if err != nil {
		return nil, err
	}

	return &Result{
		Records:          records,
		CoercionFailures: normalized.CoercionFailures,
		Filter:           filtered,
	}, nil
}
