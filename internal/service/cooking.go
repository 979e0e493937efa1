package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/eggwaffle-pos/api/internal/enum"
	"github.com/eggwaffle-pos/api/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Errors returned by the reconciler.
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotPending = errors.New("order is not pending")
	// ErrOrderChanged means another station modified the order between
	// the caller's snapshot and this action. The caller retries off the
	// next live snapshot.
	ErrOrderChanged = errors.New("order changed, please retry")
)

// CookingStore defines the DB methods the reconciler needs.
// Satisfied by *store.Store (and its WithTx variant).
type CookingStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (store.Order, error)
	UpdateItems(ctx context.Context, arg store.UpdateItemsParams) (store.Order, error)
	CompleteOrder(ctx context.Context, arg store.CompleteOrderParams) (store.Order, error)
	InsertSplit(ctx context.Context, arg store.InsertSplitParams) (store.Order, error)
	DeleteOrder(ctx context.Context, arg store.DeleteOrderParams) error
}

// NewCookingStore creates a CookingStore from a DBTX (pool or tx).
type NewCookingStore func(db store.DBTX) CookingStore

// Reconciler applies kitchen Complete and Delete actions to pending
// orders, handling partial fulfillment and partial deletion.
type Reconciler struct {
	pool     TxBeginner
	newStore NewCookingStore
	feed     Invalidator
}

func NewReconciler(pool TxBeginner, newStore NewCookingStore, feed Invalidator) *Reconciler {
	return &Reconciler{pool: pool, newStore: newStore, feed: feed}
}

// SplitSelection partitions items into the selected lines and the
// survivors, both in original order. An empty selection selects
// everything: no ticked boxes means the operator acted on the whole
// order. Selected ids that no longer exist are ignored; Complete and
// Delete treat a selection that matches nothing as a conflict.
func SplitSelection(items []store.LineItem, selected []string) (taken, remaining []store.LineItem) {
	if len(selected) == 0 {
		return items, nil
	}
	pick := make(map[string]bool, len(selected))
	for _, id := range selected {
		pick[id] = true
	}
	for _, it := range items {
		if pick[it.ID] {
			taken = append(taken, it)
		} else {
			remaining = append(remaining, it)
		}
	}
	return taken, remaining
}

// CompleteResult is the outcome of a Complete action.
type CompleteResult struct {
	// Order is the final state of the acted-on order: the done order
	// when the whole order completed, otherwise the shrunk pending order.
	Order store.Order
	// Split is the forked done record on a partial completion, nil
	// otherwise.
	Split *store.Order
	// Done reports whether the whole order reached DONE.
	Done bool
}

// Complete marks the selected lines of a pending order as done. With
// no selection, or with every line selected, the whole order flips to
// DONE. A partial selection forks an immutable done record carrying
// the completed lines and the parent's id, and shrinks the pending
// order to the survivors.
func (r *Reconciler) Complete(ctx context.Context, orderID uuid.UUID, selected []string) (CompleteResult, error) {
	var res CompleteResult
	err := r.inTx(ctx, func(st CookingStore) error {
		order, err := r.pendingOrder(ctx, st, orderID)
		if err != nil {
			return err
		}

		taken, remaining := SplitSelection(order.Items, selected)
		if len(selected) > 0 && len(taken) == 0 {
			// Every selected id is gone: the order changed under the
			// operator. Writing would fork an empty done record.
			return ErrOrderChanged
		}
		if len(remaining) == 0 {
			done, err := st.CompleteOrder(ctx, store.CompleteOrderParams{ID: order.ID, Version: order.Version})
			if err != nil {
				return mapConflict(err)
			}
			res = CompleteResult{Order: done, Done: true}
			return nil
		}

		split, err := st.InsertSplit(ctx, store.InsertSplitParams{
			ParentID: order.ID,
			OrderNo:  order.OrderNo,
			DayKey:   order.DayKey,
			ItemType: order.ItemType,
			Items:    taken,
			Note:     order.Note,
			Total:    order.Total,
		})
		if err != nil {
			return fmt.Errorf("insert split: %w", err)
		}
		shrunk, err := st.UpdateItems(ctx, store.UpdateItemsParams{ID: order.ID, Items: remaining, Version: order.Version})
		if err != nil {
			return mapConflict(err)
		}
		res = CompleteResult{Order: shrunk, Split: &split}
		return nil
	})
	if err != nil {
		return CompleteResult{}, err
	}
	r.invalidate()
	return res, nil
}

// DeleteResult is the outcome of a Delete action.
type DeleteResult struct {
	// Removed reports whether the whole order was physically deleted.
	Removed bool
	// Order is the shrunk pending order when the delete was partial.
	Order store.Order
}

// Delete discards the selected lines of a pending order. With no
// selection, or with every line selected, the order is physically
// removed — deleted orders keep no row (their order number is never
// reused). A partial selection shrinks the order to the survivors.
func (r *Reconciler) Delete(ctx context.Context, orderID uuid.UUID, selected []string) (DeleteResult, error) {
	var res DeleteResult
	err := r.inTx(ctx, func(st CookingStore) error {
		order, err := r.pendingOrder(ctx, st, orderID)
		if err != nil {
			return err
		}

		taken, remaining := SplitSelection(order.Items, selected)
		if len(selected) > 0 && len(taken) == 0 {
			return ErrOrderChanged
		}
		if len(remaining) == 0 {
			if err := st.DeleteOrder(ctx, store.DeleteOrderParams{ID: order.ID, Version: order.Version}); err != nil {
				return mapConflict(err)
			}
			res = DeleteResult{Removed: true}
			return nil
		}

		shrunk, err := st.UpdateItems(ctx, store.UpdateItemsParams{ID: order.ID, Items: remaining, Version: order.Version})
		if err != nil {
			return mapConflict(err)
		}
		res = DeleteResult{Order: shrunk}
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	r.invalidate()
	return res, nil
}

// ReplaceItems rewrites a pending order's lines from a fresh request
// (the kitchen edit dialog). The replacement is validated against the
// catalog under the order's own item type; the type itself never
// changes after creation.
func (r *Reconciler) ReplaceItems(ctx context.Context, orderID uuid.UUID, req CreateOrderRequest) (store.Order, error) {
	var updated store.Order
	err := r.inTx(ctx, func(st CookingStore) error {
		order, err := r.pendingOrder(ctx, st, orderID)
		if err != nil {
			return err
		}

		req.ItemType = order.ItemType
		items, err := BuildLineItems(req)
		if err != nil {
			return err
		}

		updated, err = st.UpdateItems(ctx, store.UpdateItemsParams{ID: order.ID, Items: items, Version: order.Version})
		if err != nil {
			return mapConflict(err)
		}
		return nil
	})
	if err != nil {
		return store.Order{}, err
	}
	r.invalidate()
	return updated, nil
}

func (r *Reconciler) pendingOrder(ctx context.Context, st CookingStore, orderID uuid.UUID) (store.Order, error) {
	order, err := st.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Order{}, ErrOrderNotFound
		}
		return store.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusPending {
		return store.Order{}, ErrOrderNotPending
	}
	return order, nil
}

func (r *Reconciler) inTx(ctx context.Context, fn func(st CookingStore) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(r.newStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Reconciler) invalidate() {
	if r.feed != nil {
		r.feed.Invalidate()
	}
}

// mapConflict turns the store's no-rows answer on a conditional write
// into the retryable conflict error. The order was pending when read
// inside this transaction, so the only way the write can miss is a
// concurrent modification.
func mapConflict(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderChanged
	}
	return err
}
