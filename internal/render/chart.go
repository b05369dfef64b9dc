package render

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"unicode"

	"github.com/golang/freetype/truetype"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ridership3d/internal/ridership/view"
	"github.com/ridership3d/pkg/ridership/models"
)

// DefaultTopN is the number of bars drawn when the caller does not choose.
const DefaultTopN = 20

// ErrNoChartData is returned when no station has a positive metric.
var ErrNoChartData = errors.New("no station has a positive value for the selected metric")

// TopStations returns up to n records of v ordered by the selected metric,
// highest first. Ties keep input order.
func TopStations(v *view.View, n int) []models.StationRecord {
	metric := v.Params.Metric
	out := append([]models.StationRecord(nil), v.Records...)
	sort.SliceStable(out, func(i, j int) bool {
		return metric.Value(out[i].DailyAvg, out[i].YearTotal) > metric.Value(out[j].DailyAvg, out[j].YearTotal)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// LoadFont parses a TrueType font file for chart labels. Station names need a
// font with CJK glyphs; the built-in font has none.
func LoadFont(path string) (*truetype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chart font: %w", err)
	}
	font, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing chart font %s: %w", path, err)
	}
	return font, nil
}

// ChartPNG renders a bar chart of the top n stations of v. A nil font uses
// the built-in one, in which case labels it cannot draw become ranks.
func ChartPNG(v *view.View, n int, font *truetype.Font) ([]byte, error) {
	if n <= 0 {
		n = DefaultTopN
	}
	if font == nil {
		var err error
		if font, err = chart.GetDefaultFont(); err != nil {
			return nil, fmt.Errorf("loading default chart font: %w", err)
		}
	}
	top := TopStations(v, n)

	metric := v.Params.Metric
	bars := make([]chart.Value, 0, len(top))
	maxValue := 0.0
	for i, r := range top {
		value := metric.Value(r.DailyAvg, r.YearTotal)
		if value > maxValue {
			maxValue = value
		}
		fill := drawing.Color{R: r.Color[0], G: r.Color[1], B: r.Color[2], A: r.Color[3]}
		bars = append(bars, chart.Value{
			Label: barLabel(font, i+1, r.Station),
			Value: value,
			Style: chart.Style{FillColor: fill, StrokeColor: fill, StrokeWidth: 1},
		})
	}
	if maxValue <= 0 {
		return nil, ErrNoChartData
	}

	metricName := metric.Column()
	if covers(font, metric.Label()) {
		metricName = metric.Label()
	}

	width := 160 + len(bars)*60
	if width < 640 {
		width = 640
	}
	graph := chart.BarChart{
		Title:      fmt.Sprintf("Top %d stations by %s", len(bars), metricName),
		Font:       font,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 24}},
		Width:      width,
		Height:     480,
		BarWidth:   40,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue * 1.1},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering chart: %w", err)
	}
	return buf.Bytes(), nil
}

// barLabel is the station name when font can draw it, else its rank.
func barLabel(font *truetype.Font, rank int, station string) string {
	if covers(font, station) {
		return station
	}
	return fmt.Sprintf("#%d", rank)
}

func covers(font *truetype.Font, s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		if font.Index(r) == 0 {
			return false
		}
	}
	return true
}
