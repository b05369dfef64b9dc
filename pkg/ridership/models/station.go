package models

import "fmt"

// RGBA is a fill color quadruple, each channel 0-255.
type RGBA [4]uint8

// StationRecord is one row of the cleaned table.
type StationRecord struct {
	System    *string `json:"system"`
	Line      *string `json:"line"`
	Station   string  `json:"station"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	DailyAvg  float64 `json:"daily_avg"`
	YearTotal float64 `json:"year_total"`
	Color     RGBA    `json:"color"`
}

// LineName returns the line or "" when absent.
func (r StationRecord) LineName() string {
	if r.Line == nil {
		return ""
	}
	return *r.Line
}

// SchemaKind selects which header schema the input must carry.
type SchemaKind string

const (
	SchemaMultiSystem  SchemaKind = "multi"
	SchemaSingleSystem SchemaKind = "single"
)

// NullPolicy is the row-retention rule applied after numeric coercion.
type NullPolicy string

const (
	// PolicyStrict drops a row when any coordinate or ridership metric is null.
	PolicyStrict NullPolicy = "strict"
	// PolicyLenient drops a row only when a coordinate is null; metrics become zero.
	PolicyLenient NullPolicy = "lenient"
)

// SourceKind distinguishes interactive uploads from the curated fixed dataset.
type SourceKind string

const (
	SourceUpload SourceKind = "upload"
	SourceFixed  SourceKind = "fixed"
)

// Variant parameterizes one pipeline run.
type Variant struct {
	Source SourceKind
	Schema SchemaKind
	Policy NullPolicy
}

// ParseSchemaKind accepts "multi" or "single".
func ParseSchemaKind(s string) (SchemaKind, error) {
	switch SchemaKind(s) {
	case SchemaMultiSystem, SchemaSingleSystem:
		return SchemaKind(s), nil
	}
	return "", fmt.Errorf("unknown schema kind %q", s)
}

// ParseNullPolicy accepts "strict" or "lenient".
func ParseNullPolicy(s string) (NullPolicy, error) {
	switch NullPolicy(s) {
	case PolicyStrict, PolicyLenient:
		return NullPolicy(s), nil
	}
	return "", fmt.Errorf("unknown null policy %q", s)
}
