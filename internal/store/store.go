// Package store is the persistence layer for orders and the per-day
// order-number counters, backed by PostgreSQL through pgx.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so the same queries
// run inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store runs order queries against a pool or transaction.
type Store struct {
	db DBTX
}

func New(db DBTX) *Store {
	return &Store{db: db}
}

// WithTx returns a Store bound to the given transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

const orderColumns = `id, order_no, day_key, item_type, items, note, status, total, version, parent_id, created_at, completed_at`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o   Order
		raw []byte
	)
	err := row.Scan(&o.ID, &o.OrderNo, &o.DayKey, &o.ItemType, &raw, &o.Note,
		&o.Status, &o.Total, &o.Version, &o.ParentID, &o.CreatedAt, &o.CompletedAt)
	if err != nil {
		return Order{}, err
	}
	o.Items, err = normalizeItems(raw)
	if err != nil {
		return Order{}, fmt.Errorf("order %s: %w", o.ID, err)
	}
	return o, nil
}

// NextOrderNo increments and returns the counter for the given day key.
// The upsert is a single atomic statement, so two concurrent creations
// can never be handed the same number.
func (s *Store) NextOrderNo(ctx context.Context, dayKey string) (int32, error) {
	var last int32
	err := s.db.QueryRow(ctx, `
		INSERT INTO counters (day_key, last)
		VALUES ($1, 1)
		ON CONFLICT (day_key)
		DO UPDATE SET last = counters.last + 1
		RETURNING last`, dayKey).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("next order no: %w", err)
	}
	return last, nil
}

// InsertOrderParams are the fields the caller supplies for a new
// pending order; ids and timestamps are assigned by the database.
type InsertOrderParams struct {
	OrderNo  int32
	DayKey   string
	ItemType string
	Items    []LineItem
	Note     pgtype.Text
	Total    pgtype.Numeric
}

func (s *Store) InsertOrder(ctx context.Context, arg InsertOrderParams) (Order, error) {
	raw, err := marshalItems(arg.Items)
	if err != nil {
		return Order{}, err
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO orders (order_no, day_key, item_type, items, note, status, total)
		VALUES ($1, $2, $3, $4, $5, 'PENDING', $6)
		RETURNING `+orderColumns,
		arg.OrderNo, arg.DayKey, arg.ItemType, raw, arg.Note, arg.Total)
	return scanOrder(row)
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// ListPending returns all pending orders, oldest first. This is the
// ordering the cooking screen displays.
func (s *Store) ListPending(ctx context.Context) ([]Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = 'PENDING'
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListCompleted returns all done records (whole orders and splits),
// most recently completed first.
func (s *Store) ListCompleted(ctx context.Context) ([]Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = 'DONE'
		ORDER BY completed_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list completed: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateItemsParams replaces a pending order's items. Version must
// match the version the caller read; a stale version means another
// station edited the order first and the update is rejected.
type UpdateItemsParams struct {
	ID      uuid.UUID
	Items   []LineItem
	Version int32
}

// UpdateItems rewrites the item list of a pending order. Returns
// pgx.ErrNoRows when the order is gone, no longer pending, or was
// modified since the caller read it.
func (s *Store) UpdateItems(ctx context.Context, arg UpdateItemsParams) (Order, error) {
	raw, err := marshalItems(arg.Items)
	if err != nil {
		return Order{}, err
	}
	row := s.db.QueryRow(ctx, `
		UPDATE orders
		SET items = $2, version = version + 1
		WHERE id = $1 AND status = 'PENDING' AND version = $3
		RETURNING `+orderColumns, arg.ID, raw, arg.Version)
	return scanOrder(row)
}

// CompleteOrderParams marks a whole pending order done.
type CompleteOrderParams struct {
	ID      uuid.UUID
	Version int32
}

func (s *Store) CompleteOrder(ctx context.Context, arg CompleteOrderParams) (Order, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE orders
		SET status = 'DONE', completed_at = now(), version = version + 1
		WHERE id = $1 AND status = 'PENDING' AND version = $2
		RETURNING `+orderColumns, arg.ID, arg.Version)
	return scanOrder(row)
}

// InsertSplitParams records the completed part of a partially
// fulfilled order. The split is immutable once written.
type InsertSplitParams struct {
	ParentID uuid.UUID
	OrderNo  int32
	DayKey   string
	ItemType string
	Items    []LineItem
	Note     pgtype.Text
	Total    pgtype.Numeric
}

func (s *Store) InsertSplit(ctx context.Context, arg InsertSplitParams) (Order, error) {
	raw, err := marshalItems(arg.Items)
	if err != nil {
		return Order{}, err
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO orders (order_no, day_key, item_type, items, note, status, total, parent_id, completed_at)
		VALUES ($1, $2, $3, $4, $5, 'DONE', $6, $7, now())
		RETURNING `+orderColumns,
		arg.OrderNo, arg.DayKey, arg.ItemType, raw, arg.Note, arg.Total, arg.ParentID)
	return scanOrder(row)
}

// DeleteOrderParams removes a pending order. Deletion is physical; a
// deleted order leaves no row behind. Its splits are untouched and keep
// their parent_id, so they stay grouped on the completed screen.
type DeleteOrderParams struct {
	ID      uuid.UUID
	Version int32
}

// DeleteOrder removes the order. Returns pgx.ErrNoRows when nothing
// matched — missing, already done, or concurrently modified.
func (s *Store) DeleteOrder(ctx context.Context, arg DeleteOrderParams) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM orders
		WHERE id = $1 AND status = 'PENDING' AND version = $2`, arg.ID, arg.Version)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
