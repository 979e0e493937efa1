package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/eggwaffle-pos/api/internal/service"
	"github.com/eggwaffle-pos/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (store.Order, error)
}

// OrderReader defines the read methods needed by the list/get handlers.
// Satisfied by *store.Store.
type OrderReader interface {
	GetOrder(ctx context.Context, id uuid.UUID) (store.Order, error)
	ListPending(ctx context.Context) ([]store.Order, error)
	ListCompleted(ctx context.Context) ([]store.Order, error)
}

// OrderHandler handles order entry endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderReader
}

func NewOrderHandler(svc OrderServicer, store OrderReader) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Post("/batch", h.CreateBatch)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// --- Request / Response types ---

type createOrderRequest struct {
	ItemType     string           `json:"item_type"`
	Quantity     int32            `json:"quantity"`
	FlavorCounts map[string]int32 `json:"flavor_counts"`
	Note         string           `json:"note"`
}

type createBatchRequest struct {
	Orders []createOrderRequest `json:"orders"`
}

type orderListResponse struct {
	Orders []OrderResponse `json:"orders"`
}

func (req createOrderRequest) toService() service.CreateOrderRequest {
	return service.CreateOrderRequest{
		ItemType:     req.ItemType,
		Quantity:     req.Quantity,
		FlavorCounts: req.FlavorCounts,
		Note:         req.Note,
	}
}

// --- Handlers ---

// Create handles POST /orders: the direct-send path.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ItemType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item_type is required"})
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), req.toService())
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "order store unavailable, please retry"})
		return
	}

	writeJSON(w, http.StatusCreated, NewOrderResponse(order))
}

// CreateBatch handles POST /orders/batch: the send-cart path. Every
// entry is validated before any order is created, so an invalid cart is
// rejected whole.
func (h *OrderHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Orders) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orders are required"})
		return
	}

	var cart service.Cart
	for i, entry := range req.Orders {
		if err := cart.Add(entry.toService()); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatEntryError(i, err)})
			return
		}
	}

	created, err := cart.Submit(r.Context(), h.svc)
	if err != nil {
		// Entries created before the failure are already persisted;
		// report both so the operator knows what is left to resend.
		log.Printf("ERROR: submit cart: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":   "order store unavailable, please retry",
			"created": NewOrderResponses(created),
		})
		return
	}

	writeJSON(w, http.StatusCreated, orderListResponse{Orders: NewOrderResponses(created)})
}

// List handles GET /orders?status=pending|done.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	var (
		orders []store.Order
		err    error
	)
	switch status {
	case "", "pending":
		orders, err = h.store.ListPending(r.Context())
	case "done":
		orders, err = h.store.ListCompleted(r.Context())
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
		return
	}
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, orderListResponse{Orders: NewOrderResponses(orders)})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, NewOrderResponse(order))
}

// --- Helpers ---

func formatEntryError(idx int, err error) string {
	return "orders[" + strconv.Itoa(idx) + "]: " + err.Error()
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidItemType) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrFlavorCount) ||
		errors.Is(err, service.ErrUnknownFlavor) ||
		errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrEmptyCart)
}
