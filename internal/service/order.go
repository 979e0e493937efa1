package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eggwaffle-pos/api/internal/catalog"
	"github.com/eggwaffle-pos/api/internal/enum"
	"github.com/eggwaffle-pos/api/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxCreateRetries = 2

// Errors returned by the order service.
var (
	ErrInvalidItemType = errors.New("invalid item_type")
	ErrInvalidQuantity = errors.New("quantity must be >= 1")
	ErrFlavorCount     = errors.New("exactly 3 flavor selections required")
	ErrUnknownFlavor   = errors.New("unknown flavor")
	ErrEmptyItems      = errors.New("order has no items")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *store.Store (and its WithTx variant).
type OrderStore interface {
	NextOrderNo(ctx context.Context, dayKey string) (int32, error)
	InsertOrder(ctx context.Context, arg store.InsertOrderParams) (store.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx), so the
// service can run both steps of a creation inside one transaction.
type NewOrderStore func(db store.DBTX) OrderStore

// Invalidator signals the live feed that the order set changed.
// Satisfied by *store.Feed; may be nil in tests.
type Invalidator interface {
	Invalidate()
}

// CreateOrderRequest is the validated input for creating an order.
// Plain orders use Quantity; combo and filling orders use FlavorCounts,
// a count per flavor name whose total must hit the catalog's required
// selection count.
type CreateOrderRequest struct {
	ItemType     string
	Quantity     int32
	FlavorCounts map[string]int32
	Note         string
}

// OrderService creates orders with their daily sequence number.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	feed     Invalidator
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore, feed Invalidator) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, feed: feed}
}

// BuildLineItems validates a request against the catalog and expands it
// into line items, each with a fresh stable id. Line order follows menu
// order, with combo filler slots last.
func BuildLineItems(req CreateOrderRequest) ([]store.LineItem, error) {
	rule, ok := catalog.RuleFor(req.ItemType)
	if !ok {
		return nil, ErrInvalidItemType
	}

	if rule.SelectionCount == 0 {
		if req.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		return []store.LineItem{{
			ID:   uuid.NewString(),
			Name: enum.FlavorPlain,
			Qty:  req.Quantity,
		}}, nil
	}

	var total int32
	for name, count := range req.FlavorCounts {
		if count < 0 {
			return nil, ErrInvalidQuantity
		}
		if count > 0 && !catalog.IsFlavor(req.ItemType, name) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFlavor, name)
		}
		total += count
	}
	if total != rule.SelectionCount {
		return nil, ErrFlavorCount
	}

	var items []store.LineItem
	for _, name := range catalog.Flavors() {
		if count := req.FlavorCounts[name]; count > 0 {
			items = append(items, store.LineItem{ID: uuid.NewString(), Name: name, Qty: count})
		}
	}
	if count := req.FlavorCounts[enum.FlavorPlain]; count > 0 {
		items = append(items, store.LineItem{ID: uuid.NewString(), Name: enum.FlavorPlain, Qty: count})
	}
	return items, nil
}

// CreateOrder validates the request, assigns the next daily order
// number, and persists the pending order — all in one transaction, so a
// failed creation never leaves an order without a number or a skipped
// number behind. Retries the whole transaction a bounded number of
// times on transient conflicts.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (store.Order, error) {
	items, err := BuildLineItems(req)
	if err != nil {
		return store.Order{}, err
	}

	var lastErr error
	for attempt := 0; attempt <= maxCreateRetries; attempt++ {
		order, err := s.createOrderTx(ctx, req, items)
		if err == nil {
			if s.feed != nil {
				s.feed.Invalidate()
			}
			return order, nil
		}
		if isTransient(err) {
			lastErr = err
			continue
		}
		return store.Order{}, err
	}
	return store.Order{}, lastErr
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, items []store.LineItem) (store.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	st := s.newStore(tx)

	dayKey := time.Now().Format("20060102")
	orderNo, err := st.NextOrderNo(ctx, dayKey)
	if err != nil {
		return store.Order{}, err
	}

	var quantity int32
	for _, it := range items {
		quantity += it.Qty
	}

	note := pgtype.Text{}
	if req.Note != "" {
		note = pgtype.Text{String: req.Note, Valid: true}
	}

	order, err := st.InsertOrder(ctx, store.InsertOrderParams{
		OrderNo:  orderNo,
		DayKey:   dayKey,
		ItemType: req.ItemType,
		Items:    items,
		Note:     note,
		Total:    decimalToNumeric(catalog.PriceFor(req.ItemType, quantity)),
	})
	if err != nil {
		return store.Order{}, fmt.Errorf("insert order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return store.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// isTransient reports whether the error is a serialization or deadlock
// failure worth re-running the whole creation for.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
