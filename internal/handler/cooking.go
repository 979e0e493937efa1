package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/eggwaffle-pos/api/internal/service"
	"github.com/eggwaffle-pos/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Reconcilerer defines the reconciler methods needed by the cooking
// handlers. Satisfied by *service.Reconciler.
type Reconcilerer interface {
	Complete(ctx context.Context, orderID uuid.UUID, selected []string) (service.CompleteResult, error)
	Delete(ctx context.Context, orderID uuid.UUID, selected []string) (service.DeleteResult, error)
	ReplaceItems(ctx context.Context, orderID uuid.UUID, req service.CreateOrderRequest) (store.Order, error)
}

// CookingHandler handles kitchen actions on pending orders.
type CookingHandler struct {
	rec Reconcilerer
}

func NewCookingHandler(rec Reconcilerer) *CookingHandler {
	return &CookingHandler{rec: rec}
}

// RegisterRoutes registers kitchen endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *CookingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{id}/complete", h.Complete)
	r.Post("/{id}/discard", h.Discard)
	r.Put("/{id}/items", h.EditItems)
}

// --- Request / Response types ---

// selectionRequest carries the ticked line ids. An empty or missing
// selection means the action applies to the whole order.
type selectionRequest struct {
	SelectedLineIDs []string `json:"selected_line_ids"`
}

type completeResponse struct {
	Order OrderResponse  `json:"order"`
	Split *OrderResponse `json:"split,omitempty"`
	Done  bool           `json:"done"`
}

type discardResponse struct {
	Removed bool           `json:"removed"`
	Order   *OrderResponse `json:"order,omitempty"`
}

type editItemsRequest struct {
	Quantity     int32            `json:"quantity"`
	FlavorCounts map[string]int32 `json:"flavor_counts"`
}

// --- Handlers ---

// Complete handles POST /orders/{id}/complete.
func (h *CookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.decodeAction(w, r)
	if !ok {
		return
	}

	res, err := h.rec.Complete(r.Context(), id, req.SelectedLineIDs)
	if err != nil {
		h.writeActionError(w, "complete order", err)
		return
	}

	resp := completeResponse{Order: NewOrderResponse(res.Order), Done: res.Done}
	if res.Split != nil {
		split := NewOrderResponse(*res.Split)
		resp.Split = &split
	}
	writeJSON(w, http.StatusOK, resp)
}

// Discard handles POST /orders/{id}/discard.
func (h *CookingHandler) Discard(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.decodeAction(w, r)
	if !ok {
		return
	}

	res, err := h.rec.Delete(r.Context(), id, req.SelectedLineIDs)
	if err != nil {
		h.writeActionError(w, "discard order", err)
		return
	}

	resp := discardResponse{Removed: res.Removed}
	if !res.Removed {
		order := NewOrderResponse(res.Order)
		resp.Order = &order
	}
	writeJSON(w, http.StatusOK, resp)
}

// EditItems handles PUT /orders/{id}/items: the kitchen edit dialog.
func (h *CookingHandler) EditItems(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req editItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.rec.ReplaceItems(r.Context(), id, service.CreateOrderRequest{
		Quantity:     req.Quantity,
		FlavorCounts: req.FlavorCounts,
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.writeActionError(w, "edit order items", err)
		return
	}

	writeJSON(w, http.StatusOK, NewOrderResponse(order))
}

// --- Helpers ---

func (h *CookingHandler) decodeAction(w http.ResponseWriter, r *http.Request) (uuid.UUID, selectionRequest, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return uuid.Nil, selectionRequest{}, false
	}

	var req selectionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return uuid.Nil, selectionRequest{}, false
		}
	}
	return id, req, true
}

func (h *CookingHandler) writeActionError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrOrderNotPending):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is not pending"})
	case errors.Is(err, service.ErrOrderChanged):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order changed, please retry"})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
