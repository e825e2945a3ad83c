package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(buildH *BuildHandler, metricsHandler http.Handler, apiToken string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)
	r.Use(limitBody)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiKeyAuth(apiToken))
		r.Route("/builds", func(r chi.Router) {
			r.Post("/", buildH.Start)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", buildH.Stop)
				r.Get("/logs", buildH.StreamLogs)
				r.Get("/logs/history", buildH.HistoryLogs)
				r.Get("/executions", buildH.ListExecutions)
			})
		})
	})

	return r
}
