package server

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/trail/internal/api/v1"
	"github.com/gosuda/trail/internal/api/ws"
)

func registerAPIRoutes(api huma.API, deps Deps) {
	v1.RegisterAuditRoutes(api, deps.Audit)
	v1.RegisterVersionRoutes(api, deps.Versions)
}

func registerWSRoutes(r chi.Router, feed ws.Subscriber) {
	if feed == nil {
		r.Get("/audit", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "live feed disabled", http.StatusServiceUnavailable)
		})
		return
	}
	r.Get("/audit", ws.NewHub(feed).ServeAudit)
}
