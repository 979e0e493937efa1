package handler

import (
	"log"
	"net/http"

	"github.com/eggwaffle-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// CompletedHandler serves the completed-orders screen: done records
// aggregated back into one card per original order.
type CompletedHandler struct {
	store OrderReader
}

func NewCompletedHandler(store OrderReader) *CompletedHandler {
	return &CompletedHandler{store: store}
}

// RegisterRoutes registers the completed endpoint on the given Chi
// router. Expected to be mounted at /orders.
func (h *CompletedHandler) RegisterRoutes(r chi.Router) {
	r.Get("/completed", h.List)
}

type completedListResponse struct {
	Groups []GroupedOrderResponse `json:"groups"`
}

// List handles GET /orders/completed.
func (h *CompletedHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListCompleted(r.Context())
	if err != nil {
		log.Printf("ERROR: list completed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	groups := service.Aggregate(records)
	writeJSON(w, http.StatusOK, completedListResponse{
		Groups: NewGroupedOrderResponses(groups),
	})
}
