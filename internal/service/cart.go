package service

import (
	"context"
	"errors"

	"github.com/eggwaffle-pos/api/internal/store"
)

// ErrEmptyCart is returned when submitting a cart with no entries.
var ErrEmptyCart = errors.New("cart is empty")

// OrderCreator is the creation surface the cart flushes through.
// Satisfied by *OrderService.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (store.Order, error)
}

// Cart accumulates validated order requests before submission. It
// models one operator's entry screen, so it is not safe for concurrent
// use. Entries are addressed by position: unlike persisted orders, a
// cart is never mutated by anyone but its owner, so positions are
// stable between render and action.
type Cart struct {
	entries []CreateOrderRequest
}

// Add validates the request against the catalog and appends it.
// Nothing invalid ever enters the cart.
func (c *Cart) Add(req CreateOrderRequest) error {
	if _, err := BuildLineItems(req); err != nil {
		return err
	}
	c.entries = append(c.entries, req)
	return nil
}

// Entries returns the queued requests in insertion order.
func (c *Cart) Entries() []CreateOrderRequest {
	out := make([]CreateOrderRequest, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Cart) Len() int {
	return len(c.entries)
}

// RemoveSelected drops the entries at the given positions. An empty
// selection clears the whole cart — the same no-selection shortcut the
// kitchen actions use. Out-of-range positions are ignored.
func (c *Cart) RemoveSelected(selected []int) {
	if len(selected) == 0 {
		c.entries = nil
		return
	}
	drop := make(map[int]bool, len(selected))
	for _, i := range selected {
		drop[i] = true
	}
	kept := c.entries[:0]
	for i, e := range c.entries {
		if !drop[i] {
			kept = append(kept, e)
		}
	}
	c.entries = kept
}

// Submit flushes the cart through the creator in insertion order.
// Each successfully created order leaves the cart immediately, so a
// mid-flight failure keeps only the unsent entries for retry.
func (c *Cart) Submit(ctx context.Context, creator OrderCreator) ([]store.Order, error) {
	if len(c.entries) == 0 {
		return nil, ErrEmptyCart
	}
	var created []store.Order
	for len(c.entries) > 0 {
		order, err := creator.CreateOrder(ctx, c.entries[0])
		if err != nil {
			return created, err
		}
		created = append(created, order)
		c.entries = c.entries[1:]
	}
	return created, nil
}
