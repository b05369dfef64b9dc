package cleaner

import (
	"errors"
	"reflect"
	"strconv"
	"testing"

	"github.com/ridership3d/pkg/ridership/models"
)

var multiHeaders = []string{"系統", "線名", "車站", "緯度", "經度", "日平均", "年總量"}

func multiTable(rows ...[]string) *models.RawTable {
	return &models.RawTable{Headers: multiHeaders, Rows: rows}
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		kind    models.SchemaKind
		missing []string
	}{
		{"multi complete", multiHeaders, models.SchemaMultiSystem, nil},
		{"extra columns tolerated", append([]string{"備註"}, multiHeaders...), models.SchemaMultiSystem, nil},
		{"single complete", []string{"車站", "緯度", "經度", "日平均", "年總量"}, models.SchemaSingleSystem, nil},
		{"single on multi file", multiHeaders, models.SchemaSingleSystem, nil},
		{"multi missing line", []string{"系統", "車站", "緯度", "經度", "日平均", "年總量"}, models.SchemaMultiSystem, []string{"線名"}},
		{"metrics missing", []string{"車站", "緯度", "經度"}, models.SchemaSingleSystem, []string{"日平均", "年總量"}},
		{"simplified headers", []string{"车站", "纬度", "经度"}, models.SchemaSingleSystem, []string{"車站", "緯度", "經度", "日平均", "年總量"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchema(tt.headers, tt.kind)
			if tt.missing == nil {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}

			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("Expected SchemaError, got %v", err)
			}
			if !reflect.DeepEqual(schemaErr.Missing, tt.missing) {
				t.Errorf("Expected missing %v, got %v", tt.missing, schemaErr.Missing)
			}
			if !reflect.DeepEqual(schemaErr.Actual, tt.headers) {
				t.Errorf("Expected actual %v, got %v", tt.headers, schemaErr.Actual)
			}
			if !reflect.DeepEqual(schemaErr.Required, RequiredColumns(tt.kind)) {
				t.Errorf("Expected required %v, got %v", RequiredColumns(tt.kind), schemaErr.Required)
			}
		})
	}
}

func TestNormalizeCoercion(t *testing.T) {
	table := multiTable(
		[]string{"台北捷運", "台北紅線", "台北車站", " 25.0478 ", "121.517", "1,200", "438000"},
		[]string{"", "", "無名站", "abc", "", "NaN", "inf"},
	)

	rows, report := Normalize(table, models.SchemaMultiSystem)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.System == nil || *first.System != "台北捷運" {
		t.Errorf("Expected system 台北捷運, got %v", first.System)
	}
	if !first.Lat.Valid || first.Lat.Float64 != 25.0478 {
		t.Errorf("Expected trimmed latitude 25.0478, got %+v", first.Lat)
	}
	if first.DailyAvg.Valid {
		t.Errorf("Expected thousands separator to fail coercion, got %v", first.DailyAvg.Float64)
	}
	if !first.YearTotal.Valid || first.YearTotal.Float64 != 438000 {
		t.Errorf("Expected year total 438000, got %+v", first.YearTotal)
	}

	second := rows[1]
	if second.System != nil || second.Line != nil {
		t.Errorf("Expected empty system and line to be nil, got %v %v", second.System, second.Line)
	}
	if second.Lat.Valid || second.Lon.Valid || second.DailyAvg.Valid || second.YearTotal.Valid {
		t.Errorf("Expected all numerics null, got %+v", second)
	}

	want := map[string]int{Lat: 1, Lon: 0, DailyAvg: 1, YearTotal: 1}
	if !reflect.DeepEqual(report.CoercionFailures, want) {
		t.Errorf("Expected coercion failures %v, got %v", want, report.CoercionFailures)
	}
}

func TestNormalizeSingleIgnoresLine(t *testing.T) {
	table := multiTable([]string{"台北捷運", "台北紅線", "台北車站", "25", "121", "1", "2"})

	rows, _ := Normalize(table, models.SchemaSingleSystem)
	if rows[0].Line != nil || rows[0].System != nil {
		t.Errorf("Expected single schema to drop line and system, got %v %v", rows[0].Line, rows[0].System)
	}
	if rows[0].Station != "台北車站" {
		t.Errorf("Expected station 台北車站, got %s", rows[0].Station)
	}
}

func TestNormalizeDuplicateHeaderUsesFirst(t *testing.T) {
	table := &models.RawTable{
		Headers: []string{"車站", "緯度", "經度", "日平均", "年總量", "日平均"},
		Rows:    [][]string{{"A", "25", "121", "10", "20", "99"}},
	}
	rows, _ := Normalize(table, models.SchemaSingleSystem)
	if rows[0].DailyAvg.Float64 != 10 {
		t.Errorf("Expected first 日平均 column, got %v", rows[0].DailyAvg.Float64)
	}
}

func TestApplyNullPolicy(t *testing.T) {
	table := multiTable(
		[]string{"台北捷運", "台北紅線", "A", "25.0", "121.5", "1000", "365000"},
		[]string{"台北捷運", "台北紅線", "B", "", "121.6", "500", "182500"},
		[]string{"台北捷運", "台北紅線", "C", "25.1", "121.7", "", "100"},
	)
	rows, _ := Normalize(table, models.SchemaMultiSystem)

	t.Run("strict", func(t *testing.T) {
		records, report, err := ApplyNullPolicy(rows, models.PolicyStrict)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(records) != 1 || records[0].Station != "A" {
			t.Fatalf("Expected only station A, got %+v", records)
		}
		if report.Dropped != 2 || report.ZeroFilled != 0 || report.Retained != 1 {
			t.Errorf("Unexpected report %+v", report)
		}
	})

	t.Run("lenient", func(t *testing.T) {
		records, report, err := ApplyNullPolicy(rows, models.PolicyLenient)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("Expected 2 records, got %d", len(records))
		}
		if records[0].Station != "A" || records[1].Station != "C" {
			t.Errorf("Expected order A, C; got %s, %s", records[0].Station, records[1].Station)
		}
		if records[1].DailyAvg != 0 || records[1].YearTotal != 100 {
			t.Errorf("Expected C zero-filled daily_avg and year_total 100, got %v %v", records[1].DailyAvg, records[1].YearTotal)
		}
		if report.Dropped != 1 || report.ZeroFilled != 1 || report.Retained != 2 {
			t.Errorf("Unexpected report %+v", report)
		}
	})
}

func TestApplyNullPolicyEmptyResult(t *testing.T) {
	rows, _ := Normalize(multiTable(
		[]string{"台北捷運", "台北紅線", "A", "", "121.5", "1", "1"},
	), models.SchemaMultiSystem)

	for _, policy := range []models.NullPolicy{models.PolicyStrict, models.PolicyLenient} {
		_, _, err := ApplyNullPolicy(rows, policy)
		var emptyErr *EmptyResultError
		if !errors.As(err, &emptyErr) {
			t.Fatalf("%s: expected EmptyResultError, got %v", policy, err)
		}
		if emptyErr.InputRows != 1 || emptyErr.Policy != policy {
			t.Errorf("%s: unexpected error fields %+v", policy, emptyErr)
		}
	}

	_, _, err := ApplyNullPolicy(nil, models.PolicyLenient)
	var emptyErr *EmptyResultError
	if !errors.As(err, &emptyErr) {
		t.Errorf("Expected EmptyResultError for header-only input, got %v", err)
	}
}

func TestCleanIdempotentOnCleanTable(t *testing.T) {
	table := multiTable(
		[]string{"台北捷運", "台北紅線", "A", "25.0", "121.5", "1000", "365000"},
		[]string{"台北捷運", "台北綠線", "B", "25.1", "121.6", "500", "182500"},
	)
	variant := models.Variant{Source: models.SourceUpload, Schema: models.SchemaMultiSystem, Policy: models.PolicyStrict}

	first, err := Clean(table, variant)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	// Re-encode the cleaned records as a raw table and clean again.
	again := &models.RawTable{Headers: multiHeaders}
	for _, r := range first.Records {
		again.Rows = append(again.Rows, []string{
			*r.System, *r.Line, r.Station,
			formatFloat(r.Lat), formatFloat(r.Lon), formatFloat(r.DailyAvg), formatFloat(r.YearTotal),
		})
	}
	second, err := Clean(again, variant)
	if err != nil {
		t.Fatalf("Second Clean failed: %v", err)
	}
	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Errorf("Expected idempotent cleaning, got %+v vs %+v", first.Records, second.Records)
	}
}

func TestCleanSchemaErrorStopsEarly(t *testing.T) {
	table := &models.RawTable{Headers: []string{"车站", "纬度", "经度"}, Rows: [][]string{{"A", "1", "2"}}}
	_, err := Clean(table, models.Variant{Schema: models.SchemaSingleSystem, Policy: models.PolicyStrict})

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected SchemaError, got %v", err)
	}
	for _, col := range []string{"日平均", "年總量"} {
		found := false
		for _, m := range schemaErr.Missing {
			if m == col {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected %s among missing columns %v", col, schemaErr.Missing)
		}
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
