package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/trolley/internal/panel"
)

// NewRouter creates a chi router with all panel routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(p *panel.Panel, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(p)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Panel state and lifecycle.
	r.Get("/panel", h.GetPanel)
	r.Post("/panel/show", h.Show)
	r.Post("/panel/hide", h.Hide)
	r.Post("/panel/refresh", h.Refresh)

	// Per-item intents.
	r.Put("/panel/items/{key}", h.SetQuantity)
	r.Delete("/panel/items/{key}", h.RemoveItem)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
