package cleaner

import (
	"database/sql"
	"math"
	"strconv"
	"strings"

	"github.com/ridership3d/pkg/ridership/models"
)

// Canonical column names used after normalization.
const (
	System    = "system"
	Line      = "line"
	Station   = "station"
	Lat       = "lat"
	Lon       = "lon"
	DailyAvg  = "daily_avg"
	YearTotal = "year_total"
)

// CanonicalNames maps localized headers to canonical names, 1:1.
var CanonicalNames = map[string]string{
	ColSystem:    System,
	ColLine:      Line,
	ColStation:   Station,
	ColLat:       Lat,
	ColLon:       Lon,
	ColDailyAvg:  DailyAvg,
	ColYearTotal: YearTotal,
}

// NumericColumns are coerced to float; unparseable cells become null.
var NumericColumns = []string{Lat, Lon, DailyAvg, YearTotal}

// naValues are cell spellings read as missing rather than as text.
var naValues = map[string]bool{
	"": true, "NA": true, "N/A": true, "n/a": true, "NaN": true, "nan": true, "-NaN": true, "-nan": true,
	"NULL": true, "null": true, "None": true, "#N/A": true, "<NA>": true,
}

// Row is a normalized record before the null policy is applied.
type Row struct {
	System    *string
	Line      *string
	Station   string
	Lat       sql.NullFloat64
	Lon       sql.NullFloat64
	DailyAvg  sql.NullFloat64
	YearTotal sql.NullFloat64
}

// NormalizeReport counts non-empty numeric cells that could not be coerced.
type NormalizeReport struct {
	CoercionFailures map[string]int
}

// Normalize renames columns to canonical names and coerces numeric cells.
// It never fails on cell content: bad numbers become null and are counted.
// The table must already have passed ValidateSchema for kind.
func Normalize(table *models.RawTable, kind models.SchemaKind) ([]Row, NormalizeReport) {
	index := make(map[string]int, len(CanonicalNames))
	for i, h := range table.Headers {
		name, ok := CanonicalNames[h]
		if !ok {
			continue
		}
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	if kind == models.SchemaSingleSystem {
		delete(index, System)
		delete(index, Line)
	}

	report := NormalizeReport{CoercionFailures: make(map[string]int, len(NumericColumns))}
	for _, col := range NumericColumns {
		report.CoercionFailures[col] = 0
	}

	rows := make([]Row, 0, len(table.Rows))
	for _, record := range table.Rows {
		get := func(col string) (string, bool) {
			idx, ok := index[col]
			if !ok || idx >= len(record) {
				return "", false
			}
			return record[idx], true
		}
		number := func(col string) sql.NullFloat64 {
			cell, _ := get(col)
			v, failed := parseNumber(cell)
			if failed {
				report.CoercionFailures[col]++
			}
			return v
		}

		row := Row{
			System:    optionalString(get(System)),
			Line:      optionalString(get(Line)),
			Lat:       number(Lat),
			Lon:       number(Lon),
			DailyAvg:  number(DailyAvg),
			YearTotal: number(YearTotal),
		}
		if s, ok := get(Station); ok && !naValues[s] {
			row.Station = s
		}
		rows = append(rows, row)
	}

	return rows, report
}

// parseNumber returns a null value for missing cells, and additionally
// reports failed=true when a present cell is not a finite number.
func parseNumber(cell string) (v sql.NullFloat64, failed bool) {
	s := strings.TrimSpace(cell)
	if naValues[s] {
		return sql.NullFloat64{}, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}, true
	}
	return sql.NullFloat64{Float64: f, Valid: true}, false
}

func optionalString(cell string, ok bool) *string {
	if !ok || naValues[cell] {
		return nil
	}
	return &cell
}
