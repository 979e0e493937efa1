package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// LineItem is one line of an order: a flavor (or "plain") with a
// quantity. ID is assigned once at creation and never changes, so
// kitchen selections can reference a line even after the list shrinks.
type LineItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Qty  int32  `json:"qty"`
}

// Order is a row of the orders table. Completed split records are also
// orders: status DONE with ParentID set to the order they came from.
type Order struct {
	ID          uuid.UUID
	OrderNo     int32
	DayKey      string
	ItemType    string
	Items       []LineItem
	Note        pgtype.Text
	Status      string
	Total       pgtype.Numeric
	Version     int32
	ParentID    pgtype.UUID
	CreatedAt   time.Time
	CompletedAt pgtype.Timestamptz
}
