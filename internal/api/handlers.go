// Package api serves rendered ridership maps over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/golang/freetype/truetype"

	"github.com/ridership3d/internal/common/logger"
	"github.com/ridership3d/internal/render"
	"github.com/ridership3d/internal/ridership/palette"
	"github.com/ridership3d/internal/ridership/pipeline"
	"github.com/ridership3d/internal/ridership/source"
	"github.com/ridership3d/internal/ridership/view"
	"github.com/ridership3d/pkg/ridership/models"
)

// Runner executes the ridership pipeline
type Runner interface {
	Run(ctx context.Context, src source.Source, sel view.Selection) (*pipeline.Output, error)
	Settings() view.Settings
}

// HistoryLister reads recent loads
type HistoryLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.LoadRun, error)
}

// Pinger checks database connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// RenderHandler handles the render endpoints
type RenderHandler struct {
	runner        Runner
	fixed         source.Source
	maxUploadSize int64
	chartFont     *truetype.Font
	logger        logger.Logger
}

// NewRenderHandler creates a handler rendering uploads and the fixed source
func NewRenderHandler(runner Runner, fixed source.Source, maxUploadSize int64, logger logger.Logger) *RenderHandler {
	return &RenderHandler{
		runner:        runner,
		fixed:         fixed,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// WithChartFont sets the font used for chart labels.
func (h *RenderHandler) WithChartFont(font *truetype.Font) *RenderHandler {
	h.chartFont = font
	return h
}

// RenderResponse is the JSON response of the render endpoints
type RenderResponse struct {
	RunID         string            `json:"runId"`
	Report        models.LoadReport `json:"report"`
	Lines         []string          `json:"lines"`
	SelectedLines []string          `json:"selectedLines"`
	Preview       models.RawTable   `json:"preview"`
	Deck          *render.Deck      `json:"deck"`
}

// RenderFixed handles GET /api/render/fixed
func (h *RenderHandler) RenderFixed(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, h.fixed)
}

// RenderUpload handles POST /api/render/upload with a multipart "file" field
func (h *RenderHandler) RenderUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "multipart field \"file\" is required",
			Details: map[string]interface{}{"internal": err.Error()},
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.render(w, r, source.NewUpload(header.Filename, data))
}

func (h *RenderHandler) render(w http.ResponseWriter, r *http.Request, src source.Source) {
	sel, err := parseSelection(r.URL.Query(), h.runner.Settings().DefaultSelection(src.Kind()))
	if err != nil {
		h.fail(w, err)
		return
	}

	out, err := h.runner.Run(r.Context(), src, sel)
	if err != nil {
		h.fail(w, err)
		return
	}

	lines := out.Table.Lines
	if lines == nil {
		lines = []string{}
	}
	selected := out.View.Lines
	if selected == nil {
		selected = []string{}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, RenderResponse{
		RunID:         out.RunID,
		Report:        out.Table.Report,
		Lines:         lines,
		SelectedLines: selected,
		Preview:       out.Table.Preview,
		Deck:          out.Deck,
	})
}

// FixedChart handles GET /api/render/fixed/chart.png
func (h *RenderHandler) FixedChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	top, err := parseTop(q)
	if err != nil {
		h.fail(w, err)
		return
	}
	sel, err := parseSelection(q, h.runner.Settings().DefaultSelection(h.fixed.Kind()))
	if err != nil {
		h.fail(w, err)
		return
	}

	out, err := h.runner.Run(r.Context(), h.fixed, sel)
	if err != nil {
		h.fail(w, err)
		return
	}

	png, err := render.ChartPNG(out.View, top, h.chartFont)
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *RenderHandler) fail(w http.ResponseWriter, err error) {
	status, body := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Render request failed", "error", err)
	} else {
		h.logger.Info("Render request rejected", "status", status, "reason", err.Error())
	}
	writeJSON(w, status, body)
}

// PaletteResponse is the JSON response for GET /api/palette
type PaletteResponse struct {
	Lines   []palette.Entry `json:"lines"`
	Default models.RGBA     `json:"default"`
}

// GetPalette handles GET /api/palette
func GetPalette(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, PaletteResponse{
		Lines:   palette.Entries(),
		Default: palette.DefaultColor,
	})
}

// HistoryHandler serves recent load runs
type HistoryHandler struct {
	history HistoryLister
}

func NewHistoryHandler(history HistoryLister) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// GetHistory handles GET /api/history
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Load history is disabled"})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "limit must be an integer between 1 and 500",
				Details: map[string]interface{}{"limit": raw},
			})
			return
		}
		limit = n
	}

	runs, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to retrieve load history",
			Details: map[string]interface{}{"internal": err.Error()},
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// HealthHandler reports service health
func HealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		}
		if db == nil {
			body["database"] = "disabled"
			writeJSON(w, http.StatusOK, body)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			body["status"] = "error"
			body["database"] = "disconnected"
			body["error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "connected"
		writeJSON(w, http.StatusOK, body)
	}
}
