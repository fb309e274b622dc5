package upstream

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/trolley/internal/apperr"
)

// Handler serves the demo cart API.
type Handler struct {
	store *Store
}

// NewHandler creates a Handler over store.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Router mounts the demo cart routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/cart", h.GetCart)
	r.Post("/cart/change", h.ChangeQuantity)
	r.Post("/cart/add", h.AddItem)
	return r
}

// GetCart handles GET /cart.
func (h *Handler) GetCart(w http.ResponseWriter, _ *http.Request) {
	snap, err := h.store.Snapshot()
	if err != nil {
		slog.Error("upstream: snapshot failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ChangeQuantity handles POST /cart/change with {"id", "quantity"} and
// answers with the mutated snapshot.
func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		Quantity *int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" || req.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("id and quantity are required"))
		return
	}
	if err := h.store.SetQuantity(req.ID, *req.Quantity); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("no such item"))
			return
		}
		slog.Error("upstream: change failed", slog.String("key", req.ID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.GetCart(w, r)
}

// AddItem handles POST /cart/add; a dev convenience for seeding carts.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var it Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid item"))
		return
	}
	if it.Key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("key is required"))
		return
	}
	if it.Quantity <= 0 {
		it.Quantity = 1
	}
	if err := h.store.Add(it); err != nil {
		slog.Error("upstream: add failed", slog.String("key", it.Key), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.GetCart(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("upstream: json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
