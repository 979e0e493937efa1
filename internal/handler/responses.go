package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/eggwaffle-pos/api/internal/catalog"
	"github.com/eggwaffle-pos/api/internal/service"
	"github.com/eggwaffle-pos/api/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// OrderResponse is the wire shape of an order. Exported because the
// websocket snapshot wiring reuses it for live payloads.
type OrderResponse struct {
	ID          uuid.UUID          `json:"id"`
	OrderNo     int32              `json:"order_no"`
	ItemType    string             `json:"item_type"`
	Items       []LineItemResponse `json:"items"`
	Note        *string            `json:"note"`
	Status      string             `json:"status"`
	Total       string             `json:"total"`
	Version     int32              `json:"version"`
	ParentID    *string            `json:"parent_id"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at"`
}

// LineItemResponse carries a line plus its checklist visibility, so
// the cooking screen can hide filler slots without dropping them from
// the selectable id space.
type LineItemResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Qty    int32  `json:"qty"`
	Hidden bool   `json:"hidden,omitempty"`
}

// GroupedOrderResponse is the completed screen's wire shape.
type GroupedOrderResponse struct {
	GroupID         uuid.UUID          `json:"group_id"`
	OrderNo         int32              `json:"order_no"`
	ItemType        string             `json:"item_type"`
	Items           []LineItemResponse `json:"items"`
	Note            *string            `json:"note"`
	LastCompletedAt time.Time          `json:"last_completed_at"`
}

// NewOrderResponse converts a store order for the wire.
func NewOrderResponse(o store.Order) OrderResponse {
	resp := OrderResponse{
		ID:        o.ID,
		OrderNo:   o.OrderNo,
		ItemType:  o.ItemType,
		Status:    o.Status,
		Total:     numericToString(o.Total),
		Version:   o.Version,
		CreatedAt: o.CreatedAt,
	}
	resp.Items = make([]LineItemResponse, len(o.Items))
	for i, it := range o.Items {
		resp.Items[i] = LineItemResponse{
			ID:     it.ID,
			Name:   it.Name,
			Qty:    it.Qty,
			Hidden: catalog.HiddenOnChecklist(o.ItemType, it.Name),
		}
	}
	if o.Note.Valid {
		resp.Note = &o.Note.String
	}
	if o.ParentID.Valid {
		s := uuid.UUID(o.ParentID.Bytes).String()
		resp.ParentID = &s
	}
	if o.CompletedAt.Valid {
		resp.CompletedAt = &o.CompletedAt.Time
	}
	return resp
}

// NewOrderResponses converts a snapshot, preserving its ordering.
func NewOrderResponses(orders []store.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = NewOrderResponse(o)
	}
	return out
}

func newGroupedOrderResponse(g service.GroupedOrder) GroupedOrderResponse {
	resp := GroupedOrderResponse{
		GroupID:         g.GroupID,
		OrderNo:         g.OrderNo,
		ItemType:        g.ItemType,
		LastCompletedAt: g.LastCompletedAt,
	}
	resp.Items = make([]LineItemResponse, len(g.Items))
	for i, it := range g.Items {
		resp.Items[i] = LineItemResponse{Name: it.Name, Qty: it.Qty}
	}
	if g.Note != "" {
		resp.Note = &g.Note
	}
	return resp
}

// NewGroupedOrderResponses converts an aggregated completed snapshot.
// Exported because the websocket snapshot wiring reuses it.
func NewGroupedOrderResponses(groups []service.GroupedOrder) []GroupedOrderResponse {
	out := make([]GroupedOrderResponse, len(groups))
	for i, g := range groups {
		out[i] = newGroupedOrderResponse(g)
	}
	return out
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}
