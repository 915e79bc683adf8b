// Package httpapi is the HTTP transport. It decodes requests, hands them to
// the services, and maps the error taxonomy onto status codes; no business
// rules live here.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"foodDeliveryPlatform/internal/auth"
)

// registrar is anything that mounts routes on the authenticated subtree.
type registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the full route tree. Everything except the health check
// sits behind the JWT middleware.
func NewRouter(jwtSecret string, handlers ...registrar) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(jwtSecret))
		for _, h := range handlers {
			h.Register(r)
		}
	})
	return r
}
