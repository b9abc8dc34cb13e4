// Package api exposes features, tasks, assignees and hill layouts over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"hillchart/internal/hill"
	"hillchart/internal/service"
)

// Options configures the router.
type Options struct {
	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Chart is the frame used for layouts, drags and SVG output.
	// The zero value means hill.DefaultParams.
	Chart hill.Params
}

type handlers struct {
	svc   service.Service
	log   *zap.Logger
	chart hill.Params
}

// NewRouter returns the HTTP handler for the API, mounted under /api.
func NewRouter(svc service.Service, opts Options) http.Handler {
	h := &handlers{svc: svc, log: opts.Logger, chart: opts.Chart}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.chart == (hill.Params{}) {
		h.chart = hill.DefaultParams()
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(h.log))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Route("/features", func(r chi.Router) {
			r.Get("/", h.listFeatures)
			r.Post("/", h.createFeature)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getFeature)
				r.Delete("/", h.deleteFeature)
				r.Get("/tasks", h.listTasks)
				r.Post("/tasks", h.createTask)
				r.Get("/stats", h.featureStats)
				r.Get("/layout", h.layout)
				r.Get("/chart.svg", h.chartSVG)
			})
		})

		r.Get("/stats", h.allStats)

		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Get("/", h.getTask)
			r.Patch("/", h.updateTask)
			r.Patch("/position", h.moveTask)
			r.Delete("/", h.deleteTask)
		})

		r.Get("/assignees", h.listAssignees)
		r.Post("/assignees", h.createAssignee)
	})

	return r
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}
