package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/trolley/internal/apperr"
	"github.com/starford/trolley/internal/cart"
	"github.com/starford/trolley/internal/panel"
)

// Handler holds API route handlers.
type Handler struct {
	p *panel.Panel
}

// NewHandler creates a new Handler.
func NewHandler(p *panel.Panel) *Handler {
	return &Handler{p: p}
}

// decodeOverride reads an optional snapshot override from the request
// body. An empty body means "no override, fetch from upstream".
func decodeOverride(r *http.Request) (*cart.Snapshot, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var snap cart.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetPanel handles GET /panel.
func (h *Handler) GetPanel(w http.ResponseWriter, _ *http.Request) {
	st, err := h.p.State()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("panel closed"))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Show handles POST /panel/show. An optional JSON body is treated as an
// authoritative snapshot override, skipping the upstream fetch.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	override, err := decodeOverride(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid snapshot override"))
		return
	}
	if err := h.p.Show(r.Context(), override); err != nil {
		slog.Error("api: show refresh failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("cart upstream unavailable"))
		return
	}
	st, err := h.p.State()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("panel closed"))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Hide handles POST /panel/hide.
func (h *Handler) Hide(w http.ResponseWriter, _ *http.Request) {
	if err := h.p.Hide(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("panel closed"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh handles POST /panel/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	override, err := decodeOverride(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid snapshot override"))
		return
	}
	snap, err := h.p.Refresh(r.Context(), override)
	if err != nil {
		slog.Error("api: refresh failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("cart upstream unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// SetQuantity handles PUT /panel/items/{key}. The mutation itself is
// asynchronous: a 202 means the intent was accepted and the row is now
// processing; progress arrives over the event stream.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil || *req.Quantity < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("quantity is required and must be >= 0"))
		return
	}
	h.accept(w, key, h.p.SetQuantity(key, *req.Quantity))
}

// RemoveItem handles DELETE /panel/items/{key}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	h.accept(w, key, h.p.Remove(key))
}

func (h *Handler) accept(w http.ResponseWriter, key string, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "key": key})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("no such item"))
	case errors.Is(err, apperr.ErrBusy):
		writeJSON(w, http.StatusConflict, errorBody("item mutation already in flight"))
	default:
		slog.Error("api: intent rejected", slog.String("key", key), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
