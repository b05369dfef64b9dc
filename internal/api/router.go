package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the collaborators of the router. History and DB may be nil.
type Deps struct {
	Render      *RenderHandler
	History     HistoryLister
	DB          Pinger
	CORSOrigins []string
}

// NewRouter wires every endpoint.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", HealthHandler(deps.DB))
	r.Get("/api/palette", GetPalette)

	r.Get("/api/render/fixed", deps.Render.RenderFixed)
	r.Get("/api/render/fixed/chart.png", deps.Render.FixedChart)
	r.Post("/api/render/upload", deps.Render.RenderUpload)

	r.Get("/api/history", NewHistoryHandler(deps.History).GetHistory)

	return r
}
