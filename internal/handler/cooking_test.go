package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eggwaffle-pos/api/internal/enum"
	"github.com/eggwaffle-pos/api/internal/handler"
	"github.com/eggwaffle-pos/api/internal/service"
	"github.com/eggwaffle-pos/api/internal/store"
)

// --- Mock Reconcilerer ---

type mockReconciler struct {
	completeFn     func(ctx context.Context, orderID uuid.UUID, selected []string) (service.CompleteResult, error)
	deleteFn       func(ctx context.Context, orderID uuid.UUID, selected []string) (service.DeleteResult, error)
	replaceItemsFn func(ctx context.Context, orderID uuid.UUID, req service.CreateOrderRequest) (store.Order, error)
}

func (m *mockReconciler) Complete(ctx context.Context, orderID uuid.UUID, selected []string) (service.CompleteResult, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, orderID, selected)
	}
	return service.CompleteResult{}, service.ErrOrderNotFound
}

func (m *mockReconciler) Delete(ctx context.Context, orderID uuid.UUID, selected []string) (service.DeleteResult, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, orderID, selected)
	}
	return service.DeleteResult{}, service.ErrOrderNotFound
}

func (m *mockReconciler) ReplaceItems(ctx context.Context, orderID uuid.UUID, req service.CreateOrderRequest) (store.Order, error) {
	if m.replaceItemsFn != nil {
		return m.replaceItemsFn(ctx, orderID, req)
	}
	return store.Order{}, service.ErrOrderNotFound
}

func setupCookingRouter(rec *mockReconciler) *chi.Mux {
	h := handler.NewCookingHandler(rec)
	r := chi.NewRouter()
	r.Route("/orders", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestComplete_WholeOrder(t *testing.T) {
	orderID := uuid.New()
	rec := &mockReconciler{
		completeFn: func(ctx context.Context, id uuid.UUID, selected []string) (service.CompleteResult, error) {
			if id != orderID {
				t.Errorf("id: got %v, want %v", id, orderID)
			}
			if len(selected) != 0 {
				t.Errorf("selected: got %v, want empty", selected)
			}
			order := testOrder(t, 4, enum.ItemTypeCombo, nil)
			order.ID = orderID
			order.Status = enum.OrderStatusDone
			return service.CompleteResult{Order: order, Done: true}, nil
		},
	}

	router := setupCookingRouter(rec)
	rr := doRequest(t, router, "POST", "/orders/"+orderID.String()+"/complete", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["done"] != true {
		t.Errorf("done: got %v, want true", resp["done"])
	}
	if _, hasSplit := resp["split"]; hasSplit {
		t.Error("whole-order completion should not carry a split")
	}
}

func TestComplete_PartialSelection(t *testing.T) {
	orderID := uuid.New()
	rec := &mockReconciler{
		completeFn: func(ctx context.Context, id uuid.UUID, selected []string) (service.CompleteResult, error) {
			if len(selected) != 1 || selected[0] != "l1" {
				t.Errorf("selected: got %v, want [l1]", selected)
			}
			remaining := testOrder(t, 4, enum.ItemTypeCombo, []store.LineItem{
				{ID: "l2", Name: enum.FlavorOreo, Qty: 1},
			})
			remaining.ID = orderID
			split := testOrder(t, 4, enum.ItemTypeCombo, []store.LineItem{
				{ID: "l1", Name: enum.FlavorCheese, Qty: 1},
			})
			split.Status = enum.OrderStatusDone
			return service.CompleteResult{Order: remaining, Split: &split, Done: false}, nil
		},
	}

	router := setupCookingRouter(rec)
	rr := doRequest(t, router, "POST", "/orders/"+orderID.String()+"/complete", map[string]interface{}{
		"selected_line_ids": []string{"l1"},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["done"] != false {
		t.Errorf("done: got %v, want false", resp["done"])
	}
	split := resp["split"].(map[string]interface{})
	if split["status"] != enum.OrderStatusDone {
		t.Errorf("split status: got %v, want DONE", split["status"])
	}
	// Both halves keep the customer-facing number
	order := resp["order"].(map[string]interface{})
	if order["order_no"] != split["order_no"] {
		t.Errorf("order_no mismatch: order=%v split=%v", order["order_no"], split["order_no"])
	}
}

func TestComplete_NotFound(t *testing.T) {
	router := setupCookingRouter(&mockReconciler{})
	rr := doRequest(t, router, "POST", "/orders/"+uuid.New().String()+"/complete", nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestComplete_ConflictOnConcurrentChange(t *testing.T) {
	rec := &mockReconciler{
		completeFn: func(ctx context.Context, id uuid.UUID, selected []string) (service.CompleteResult, error) {
			return service.CompleteResult{}, service.ErrOrderChanged
		},
	}

	router := setupCookingRouter(rec)
	rr := doRequest(t, router, "POST", "/orders/"+uuid.New().String()+"/complete", nil)

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", rr.Code)
	}
}

func TestComplete_BadID(t *testing.T) {
	router := setupCookingRouter(&mockReconciler{})
	rr := doRequest(t, router, "POST", "/orders/nope/complete", nil)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestDiscard_WholeOrder(t *testing.T) {
	orderID := uuid.New()
	rec := &mockReconciler{
		deleteFn: func(ctx context.Context, id uuid.UUID, selected []string) (service.DeleteResult, error) {
			return service.DeleteResult{Removed: true}, nil
		},
	}

	router := setupCookingRouter(rec)
	rr := doRequest(t, router, "POST", "/orders/"+orderID.String()+"/discard", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["removed"] != true {
		t.Errorf("removed: got %v, want true", resp["removed"])
	}
	if _, hasOrder := resp["order"]; hasOrder {
		t.Error("removed order should not be echoed back")
	}
}

func TestDiscard_PartialSelectionKeepsOrder(t *testing.T) {
	orderID := uuid.New()
	rec := &mockReconciler{
		deleteFn: func(ctx context.Context, id uuid.UUID, selected []string) (service.DeleteResult, error) {
			if len(selected) != 1 || selected[0] != "l2" {
				t.Errorf("selected: got %v, want [l2]", selected)
			}
			shrunk := testOrder(t, 9, enum.ItemTypeCombo, []store.LineItem{
				{ID: "l1", Name: enum.FlavorCheese, Qty: 1},
			})
			shrunk.ID = orderID
			return service.DeleteResult{Removed: false, Order: shrunk}, nil
		},
	}

	router := setupCookingRouter(rec)
	rr := doRequest(t, router, "POST", "/orders/"+orderID.String()+"/discard", map[string]interface{}{
		"selected_line_ids": []string{"l2"},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["removed"] != false {
		t.Errorf("removed: got %v, want false", resp["removed"])
	}
	order := resp["order"].(map[string]interface{})
	items := order["items"].([]interface{})
	if len(items) != 1 {
		t.Errorf("remaining items: got %d, want 1", len(items))
	}
}

func TestDiscard_NotPending(t *testing.T) {
	rec := &mockReconciler{
		deleteFn: func(ctx context.Context, id uuid.UUID, selected []string) (service.DeleteResult, error) {
			return service.DeleteResult{}, service.ErrOrderNotPending
		},
	}

	router := setupCookingRouter(rec)
	rr := doRequest(t, router, "POST", "/orders/"+uuid.New().String()+"/discard", nil)

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", rr.Code)
	}
}

func TestEditItems_HappyPath(t *testing.T) {
	orderID := uuid.New()
	rec := &mockReconciler{
		replaceItemsFn: func(ctx context.Context, id uuid.UUID, req service.CreateOrderRequest) (store.Order, error) {
			if req.FlavorCounts[enum.FlavorBrownSugar] != 3 {
				t.Errorf("brown-sugar count: got %d, want 3", req.FlavorCounts[enum.FlavorBrownSugar])
			}
			updated := testOrder(t, 5, enum.ItemTypeFilling, []store.LineItem{
				{ID: "l1", Name: enum.FlavorBrownSugar, Qty: 3},
			})
			updated.ID = orderID
			updated.Version = 2
			return updated, nil
		},
	}

	router := setupCookingRouter(rec)
	rr := doRequest(t, router, "PUT", "/orders/"+orderID.String()+"/items", map[string]interface{}{
		"flavor_counts": map[string]int32{"brown-sugar": 3},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["version"].(float64) != 2 {
		t.Errorf("version: got %v, want 2", resp["version"])
	}
}

func TestEditItems_ValidationErrorIs400(t *testing.T) {
	rec := &mockReconciler{
		replaceItemsFn: func(ctx context.Context, id uuid.UUID, req service.CreateOrderRequest) (store.Order, error) {
			return store.Order{}, service.ErrFlavorCount
		},
	}

	router := setupCookingRouter(rec)
	rr := doRequest(t, router, "PUT", "/orders/"+uuid.New().String()+"/items", map[string]interface{}{
		"flavor_counts": map[string]int32{"cheese": 1},
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestEditItems_StoreFailureIs500(t *testing.T) {
	rec := &mockReconciler{
		replaceItemsFn: func(ctx context.Context, id uuid.UUID, req service.CreateOrderRequest) (store.Order, error) {
			return store.Order{}, errors.New("connection refused")
		},
	}

	router := setupCookingRouter(rec)
	rr := doRequest(t, router, "PUT", "/orders/"+uuid.New().String()+"/items", map[string]interface{}{
		"quantity": 2,
	})

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rr.Code)
	}
}
