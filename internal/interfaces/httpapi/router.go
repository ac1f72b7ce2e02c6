// Package httpapi exposes the redirect service over HTTP.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-hclog"
)

// NewRouter builds the API routes. metrics may be nil, in which case
// /metrics is not mounted.
func NewRouter(handler *Handler, metrics http.Handler, logger hclog.Logger) http.Handler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(logger))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/bindings", handler.listBindings)
		r.Get("/resolve/{class}", handler.resolve)
		r.Post("/convert", handler.convert)
		r.Post("/launch", handler.launch)
		r.Post("/results/{code}", handler.completeResult)
	})
	return r
}
