// Package view turns a cleaned station table and a user selection into the
// records and camera parameters of one rendering.
package view

import (
	"fmt"
	"math"
	"strings"

	"github.com/ridership3d/pkg/ridership/models"
)

// Column layer constants and slider ranges.
const (
	Radius = 150

	DefaultElevationScale = 0.01
	MinElevationScale     = 0.0001
	MaxElevationScale     = 0.5
	MinPitch              = 0
	MaxPitch              = 85
	MinBearing            = -180
	MaxBearing            = 180
)

// SelectionError reports an invalid user choice.
type SelectionError struct {
	Field  string
	Reason string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// EmptyViewError is returned when the selection leaves nothing to render.
type EmptyViewError struct {
	Lines []string
}

func (e *EmptyViewError) Error() string {
	return fmt.Sprintf("no stations match the selected lines [%s]", strings.Join(e.Lines, ", "))
}

// Camera is the default viewpoint of a variant. Anchored cameras look at
// Latitude/Longitude; others center on the mean of the rendered stations.
type Camera struct {
	Latitude  float64
	Longitude float64
	Anchored  bool
	Zoom      float64
	Pitch     float64
	Bearing   float64
}

// Settings holds the per-variant view defaults.
type Settings struct {
	ElevationScale float64
	Fixed          Camera
	Upload         Camera
}

// Camera returns the camera for source.
func (s Settings) Camera(source models.SourceKind) Camera {
	if source == models.SourceUpload {
		return s.Upload
	}
	return s.Fixed
}

// DefaultSelection returns the selection used when the user changed nothing:
// every line, daily average, and the variant's default camera angles.
func (s Settings) DefaultSelection(source models.SourceKind) Selection {
	cam := s.Camera(source)
	scale := s.ElevationScale
	if scale == 0 {
		scale = DefaultElevationScale
	}
	return Selection{
		Metric:         MetricDailyAvg,
		ElevationScale: scale,
		Pitch:          cam.Pitch,
		Bearing:        cam.Bearing,
	}
}

// Selection is what the user picked. A nil Lines selects every line of the
// table; a non-nil empty Lines is an explicit empty choice and is rejected.
type Selection struct {
	Lines          []string
	Metric         Metric
	ElevationScale float64
	Pitch          float64
	Bearing        float64
}

// Validate checks the metric and slider ranges. Line selection depends on
// the table schema and is checked by Resolve.
func (s Selection) Validate() error {
	if _, err := ParseMetric(string(s.Metric)); err != nil {
		return err
	}
	if !inRange(s.ElevationScale, MinElevationScale, MaxElevationScale) {
		return &SelectionError{Field: "scale", Reason: fmt.Sprintf("%v is outside [%v, %v]", s.ElevationScale, MinElevationScale, MaxElevationScale)}
	}
	if !inRange(s.Pitch, MinPitch, MaxPitch) {
		return &SelectionError{Field: "pitch", Reason: fmt.Sprintf("%v is outside [%d, %d]", s.Pitch, MinPitch, MaxPitch)}
	}
	if !inRange(s.Bearing, MinBearing, MaxBearing) {
		return &SelectionError{Field: "bearing", Reason: fmt.Sprintf("%v is outside [%d, %d]", s.Bearing, MinBearing, MaxBearing)}
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// Params is the parameter bundle handed to the renderer.
type Params struct {
	Metric          Metric  `json:"metric"`
	ElevationColumn string  `json:"elevation_column"`
	ElevationScale  float64 `json:"elevation_scale"`
	Radius          float64 `json:"radius"`
	CenterLat       float64 `json:"center_lat"`
	CenterLon       float64 `json:"center_lon"`
	Zoom            float64 `json:"zoom"`
	Pitch           float64 `json:"pitch"`
	Bearing         float64 `json:"bearing"`
}

// View is the resolved rendering input.
type View struct {
	Schema  models.SchemaKind
	Lines   []string
	Records []models.StationRecord
	Params  Params
}

// Resolve filters table to the selected lines and computes the camera.
// The single-system schema has no lines, so line selection is skipped.
func Resolve(table *models.StationTable, sel Selection, cam Camera) (*View, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	metric, _ := ParseMetric(string(sel.Metric))

	v := &View{Schema: table.Variant.Schema}
	if table.Variant.Schema == models.SchemaSingleSystem {
		v.Records = append([]models.StationRecord(nil), table.Records...)
	} else {
		lines := sel.Lines
		if lines == nil {
			lines = table.Lines
		}
		if len(lines) == 0 {
			return nil, &SelectionError{Field: "line", Reason: "select at least one line"}
		}
		v.Lines = append([]string(nil), lines...)
		v.Records = filterLines(table.Records, lines)
	}

	if len(v.Records) == 0 {
		return nil, &EmptyViewError{Lines: v.Lines}
	}

	lat, lon := cam.Latitude, cam.Longitude
	if !cam.Anchored {
		lat, lon = meanPosition(v.Records)
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return nil, &EmptyViewError{Lines: v.Lines}
	}

	v.Params = Params{
		Metric:          metric,
		ElevationColumn: metric.Column(),
		ElevationScale:  sel.ElevationScale,
		Radius:          Radius,
		CenterLat:       lat,
		CenterLon:       lon,
		Zoom:            cam.Zoom,
		Pitch:           sel.Pitch,
		Bearing:         sel.Bearing,
	}
	return v, nil
}

// filterLines keeps records whose line is in lines, preserving order.
// Records without a line never match.
func filterLines(records []models.StationRecord, lines []string) []models.StationRecord {
	want := make(map[string]bool, len(lines))
	for _, l := range lines {
		want[l] = true
	}
	out := make([]models.StationRecord, 0, len(records))
	for _, r := range records {
		if r.Line != nil && want[*r.Line] {
			out = append(out, r)
		}
	}
	return out
}

func meanPosition(records []models.StationRecord) (lat, lon float64) {
	if len(records) == 0 {
		return math.NaN(), math.NaN()
	}
	for _, r := range records {
		lat += r.Lat
		lon += r.Lon
	}
	n := float64(len(records))
	return lat / n, lon / n
}
