package cleaner

import (
	"fmt"

	"github.com/ridership3d/pkg/ridership/models"
)

// EmptyResultError is returned when the null policy eliminates every row.
type EmptyResultError struct {
	Policy    models.NullPolicy
	InputRows int
}

func (e *EmptyResultError) Error() string {
	if e.Policy == models.PolicyLenient {
		return fmt.Sprintf("all %d rows lack a numeric latitude or longitude; check the CSV contents", e.InputRows)
	}
	return fmt.Sprintf("all %d rows are missing a coordinate or ridership value; check the CSV contents", e.InputRows)
}

// FilterReport counts what the null policy did.
type FilterReport struct {
	Dropped    int
	ZeroFilled int
	Retained   int
}

// ApplyNullPolicy converts normalized rows into station records. Rows with a
// null coordinate are always dropped; null metrics drop the row under
// PolicyStrict and become zero under PolicyLenient. Input order is kept.
func ApplyNullPolicy(rows []Row, policy models.NullPolicy) ([]models.StationRecord, FilterReport, error) {
	var report FilterReport
	records := make([]models.StationRecord, 0, len(rows))

	for _, row := range rows {
		if !row.Lat.Valid || !row.Lon.Valid {
			report.Dropped++
			continue
		}

		metricsMissing := !row.DailyAvg.Valid || !row.YearTotal.Valid
		switch policy {
		case models.PolicyStrict:
			if metricsMissing {
				report.Dropped++
				continue
			}
		case models.PolicyLenient:
			if metricsMissing {
				report.ZeroFilled++
			}
		default:
			return nil, report, fmt.Errorf("unknown null policy %q", policy)
		}

		records = append(records, models.StationRecord{
			System:    row.System,
			Line:      row.Line,
			Station:   row.Station,
			Lat:       row.Lat.Float64,
			Lon:       row.Lon.Float64,
			DailyAvg:  valueOrZero(row.DailyAvg.Float64, row.DailyAvg.Valid),
			YearTotal: valueOrZero(row.YearTotal.Float64, row.YearTotal.Valid),
		})
	}

	report.Retained = len(records)
	if len(records) == 0 {
		return nil, report, &EmptyResultError{Policy: policy, InputRows: len(rows)}
	}
	return records, report, nil
}

func valueOrZero(v float64, valid bool) float64 {
	if !valid {
		return 0
	}
	return v
}
