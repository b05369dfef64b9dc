package view

import "strings"

// Metric selects which ridership column drives column height.
type Metric string

const (
	MetricDailyAvg  Metric = "daily_avg"
	MetricYearTotal Metric = "year_total"
)

// Column is the canonical column name backing m.
func (m Metric) Column() string {
	return string(m)
}

// Label is the localized name shown to users.
func (m Metric) Label() string {
	if m == MetricYearTotal {
		return "年總量"
	}
	return "日平均"
}

// Value returns the metric of one record.
func (m Metric) Value(daily, yearly float64) float64 {
	if m == MetricYearTotal {
		return yearly
	}
	return daily
}

// ParseMetric accepts canonical or localized names. An empty string selects
// MetricDailyAvg.
func ParseMetric(s string) (Metric, error) {
	switch strings.TrimSpace(s) {
	case "", "daily_avg", "日平均":
		return MetricDailyAvg, nil
	case "year_total", "年總量":
		return MetricYearTotal, nil
	}
	return "", &SelectionError{Field: "metric", Reason: "must be daily_avg (日平均) or year_total (年總量), got " + s}
}
