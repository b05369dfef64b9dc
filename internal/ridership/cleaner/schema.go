// Package cleaner validates, normalizes and filters decoded ridership tables.
package cleaner

import (
	"fmt"
	"strings"

	"github.com/ridership3d/pkg/ridership/models"
)

// Localized column headers as they appear in source files.
const (
	ColSystem    = "系統"
	ColLine      = "線名"
	ColStation   = "車站"
	ColLat       = "緯度"
	ColLon       = "經度"
	ColDailyAvg  = "日平均"
	ColYearTotal = "年總量"
)

var requiredColumns = map[models.SchemaKind][]string{
	models.SchemaMultiSystem:  {ColSystem, ColLine, ColStation, ColLat, ColLon, ColDailyAvg, ColYearTotal},
	models.SchemaSingleSystem: {ColStation, ColLat, ColLon, ColDailyAvg, ColYearTotal},
}

// RequiredColumns returns the headers kind requires, in canonical order.
func RequiredColumns(kind models.SchemaKind) []string {
	return append([]string(nil), requiredColumns[kind]...)
}

// SchemaError reports required headers absent from the input.
type SchemaError struct {
	Kind     models.SchemaKind
	Required []string
	Actual   []string
	Missing  []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("CSV must contain columns [%s]; missing [%s]; found [%s]",
		strings.Join(e.Required, ", "),
		strings.Join(e.Missing, ", "),
		strings.Join(e.Actual, ", "))
}

// ValidateSchema succeeds iff every column kind requires is among headers.
// Header names are compared exactly; extra headers are ignored.
func ValidateSchema(headers []string, kind models.SchemaKind) error {
	required, ok := requiredColumns[kind]
	if !ok {
		return fmt.Errorf("unknown schema kind %q", kind)
	}

	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	return &SchemaError{
		Kind:     kind,
		Required: RequiredColumns(kind),
		Actual:   append([]string(nil), headers...),
		Missing:  missing,
	}
}
