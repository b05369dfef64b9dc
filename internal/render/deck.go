// Package render builds the outputs consumed by map and chart clients.
package render

import (
	"encoding/json"
	"io"

	"github.com/ridership3d/internal/ridership/view"
	"github.com/ridership3d/pkg/ridership/models"
)

const (
	multiTooltip  = "系統：{system}\n線名：{line}\n車站：{station}\n日平均：{daily_avg}\n年總量：{year_total}"
	singleTooltip = "車站：{station}\n日平均：{daily_avg}\n年總量：{year_total}"
)

// TooltipTemplate returns the hover text template for schema.
func TooltipTemplate(schema models.SchemaKind) string {
	if schema == models.SchemaSingleSystem {
		return singleTooltip
	}
	return multiTooltip
}

// Deck is a deck.gl JSON description of one map, in the format read by
// the @deck.gl/json converter.
type Deck struct {
	MapProvider      string        `json:"mapProvider"`
	MapStyle         string        `json:"mapStyle"`
	MapboxAPIKey     string        `json:"mapboxApiKey"`
	InitialViewState ViewState     `json:"initialViewState"`
	Views            []MapView     `json:"views"`
	Layers           []ColumnLayer `json:"layers"`
	Tooltip          Tooltip       `json:"tooltip"`
	Params           view.Params   `json:"params"`
}

type ViewState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
	Bearing   float64 `json:"bearing"`
}

type MapView struct {
	Type       string `json:"@@type"`
	Controller bool   `json:"controller"`
}

// ColumnLayer draws one extruded column per station.
type ColumnLayer struct {
	Type           string                 `json:"@@type"`
	ID             string                 `json:"id"`
	Data           []models.StationRecord `json:"data"`
	GetPosition    string                 `json:"getPosition"`
	GetElevation   string                 `json:"getElevation"`
	GetFillColor   string                 `json:"getFillColor"`
	ElevationScale float64                `json:"elevationScale"`
	Radius         float64                `json:"radius"`
	Pickable       bool                   `json:"pickable"`
	Extruded       bool                   `json:"extruded"`
}

type Tooltip struct {
	Text string `json:"text"`
}

// Builder assembles decks with a fixed map style and key.
type Builder struct {
	MapStyle     string
	MapboxAPIKey string
}

func NewBuilder(mapStyle, apiKey string) *Builder {
	return &Builder{MapStyle: mapStyle, MapboxAPIKey: apiKey}
}

// Build describes v as a deck. It does not modify v.
func (b *Builder) Build(v *view.View) *Deck {
	p := v.Params
	data := v.Records
	if data == nil {
		data = []models.StationRecord{}
	}

	return &Deck{
		MapProvider:  "mapbox",
		MapStyle:     b.MapStyle,
		MapboxAPIKey: b.MapboxAPIKey,
		InitialViewState: ViewState{
			Latitude:  p.CenterLat,
			Longitude: p.CenterLon,
			Zoom:      p.Zoom,
			Pitch:     p.Pitch,
			Bearing:   p.Bearing,
		},
		Views: []MapView{{Type: "MapView", Controller: true}},
		Layers: []ColumnLayer{{
			Type:           "ColumnLayer",
			ID:             "stations",
			Data:           data,
			GetPosition:    "@@=[lon, lat]",
			GetElevation:   "@@=" + p.ElevationColumn,
			GetFillColor:   "@@=color",
			ElevationScale: p.ElevationScale,
			Radius:         p.Radius,
			Pickable:       true,
			Extruded:       true,
		}},
		Tooltip: Tooltip{Text: TooltipTemplate(v.Schema)},
		Params:  p,
	}
}

// WriteJSON encodes d as indented JSON.
func (d *Deck) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
