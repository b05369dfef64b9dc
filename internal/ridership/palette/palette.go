// Package palette maps transit line names to their display colors.
package palette

import (
	"sort"

	"github.com/ridership3d/pkg/ridership/models"
)

// DefaultColor is returned for missing or unrecognized line names.
var DefaultColor = models.RGBA{120, 120, 120, 200}

// lineColors is read-only after package initialization.
var lineColors = map[string]models.RGBA{
	"台北紅線":   {227, 0, 46, 200},
	"台中捷運":   {0, 160, 80, 200},
	"高雄輕軌":   {0, 166, 81, 200},
	"台北綠線":   {0, 148, 96, 200},
	"北捷環狀線":  {255, 222, 0, 200},
	"台北安坑輕軌": {0, 180, 120, 200},
	"台北文湖線":  {155, 118, 83, 200},
	"台北板南線":  {0, 112, 189, 200},
	"淡海輕軌":   {0, 170, 170, 200},
	"高捷紅線":   {226, 0, 26, 200},
	"高捷橘線":   {247, 148, 29, 200},
	"北捷o線":   {255, 210, 60, 200},
	"桃園機捷":   {140, 80, 180, 200},
}

// ColorFor returns the color of line. The lookup is an exact string match:
// names differing in case or surrounding whitespace get DefaultColor.
func ColorFor(line *string) models.RGBA {
	if line == nil {
		return DefaultColor
	}
	if c, ok := lineColors[*line]; ok {
		return c
	}
	return DefaultColor
}

// Lookup reports the color of a known line.
func Lookup(line string) (models.RGBA, bool) {
	c, ok := lineColors[line]
	return c, ok
}

// Entry is one row of the color table.
type Entry struct {
	Line  string      `json:"line"`
	Color models.RGBA `json:"color"`
}

// Entries returns the table sorted by line name.
func Entries() []Entry {
	out := make([]Entry, 0, len(lineColors))
	for line, c := range lineColors {
		out = append(out, Entry{Line: line, Color: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// Paint sets the Color of every record from its line.
func Paint(records []models.StationRecord) {
	for i := range records {
		records[i].Color = ColorFor(records[i].Line)
	}
}
