package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ridership3d/internal/ridership/view"
)

// parseSelection overlays query parameters on defaults. A bare "line="
// yields an explicit empty selection.
func parseSelection(q url.Values, defaults view.Selection) (view.Selection, error) {
	sel := defaults

	if values, ok := q["line"]; ok {
		sel.Lines = []string{}
		for _, v := range values {
			if v != "" {
				sel.Lines = append(sel.Lines, v)
			}
		}
	}

	if q.Has("metric") {
		metric, err := view.ParseMetric(q.Get("metric"))
		if err != nil {
			return sel, err
		}
		sel.Metric = metric
	}

	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"scale", &sel.ElevationScale},
		{"pitch", &sel.Pitch},
		{"bearing", &sel.Bearing},
	} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return sel, &view.SelectionError{Field: p.name, Reason: "not a number: " + raw}
		}
		*p.dst = f
	}

	return sel, sel.Validate()
}

func parseTop(q url.Values) (int, error) {
	raw := q.Get("top")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 200 {
		return 0, &view.SelectionError{Field: "top", Reason: "must be an integer between 1 and 200"}
	}
	return n, nil
}
