package service

import (
	"sort"
	"time"

	"github.com/eggwaffle-pos/api/internal/store"
	"github.com/google/uuid"
)

// GroupedOrder is the completed screen's display entity: every done
// record that came out of the same original order, merged back into
// one card.
type GroupedOrder struct {
	// GroupID is the original order's id (the parent of its splits).
	GroupID  uuid.UUID
	OrderNo  int32
	ItemType string
	// Items are merged across the group's records: one entry per
	// flavor name, quantities summed, first-seen order preserved.
	Items []store.LineItem
	Note  string
	// LastCompletedAt is the latest completion across the group.
	LastCompletedAt time.Time
}

// Aggregate folds done records (whole completed orders and partial
// splits) into display groups, most recently completed first. It is a
// pure function of its input: the same records always produce the same
// groups in the same order, so it can be re-run on every snapshot.
func Aggregate(records []store.Order) []GroupedOrder {
	byGroup := make(map[uuid.UUID]*GroupedOrder)
	var keys []uuid.UUID

	for _, rec := range records {
		key := rec.ID
		if rec.ParentID.Valid {
			key = uuid.UUID(rec.ParentID.Bytes)
		}

		g, ok := byGroup[key]
		if !ok {
			g = &GroupedOrder{
				GroupID:  key,
				OrderNo:  rec.OrderNo,
				ItemType: rec.ItemType,
			}
			byGroup[key] = g
			keys = append(keys, key)
		}
		if rec.Note.Valid && g.Note == "" {
			g.Note = rec.Note.String
		}
		g.Items = mergeItems(g.Items, rec.Items)
		if rec.CompletedAt.Valid && rec.CompletedAt.Time.After(g.LastCompletedAt) {
			g.LastCompletedAt = rec.CompletedAt.Time
		}
	}

	groups := make([]GroupedOrder, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, *byGroup[key])
	}

	// Newest completion first; equal timestamps break by group id so
	// the ordering is stable across runs.
	sort.SliceStable(groups, func(i, j int) bool {
		if !groups[i].LastCompletedAt.Equal(groups[j].LastCompletedAt) {
			return groups[i].LastCompletedAt.After(groups[j].LastCompletedAt)
		}
		return groups[i].GroupID.String() < groups[j].GroupID.String()
	})
	return groups
}

// mergeItems folds src into dst, collapsing lines by flavor name and
// summing quantities. Line ids are dropped: a group is a display
// entity, not a selectable order.
func mergeItems(dst, src []store.LineItem) []store.LineItem {
	idx := make(map[string]int, len(dst))
	for i, it := range dst {
		idx[it.Name] = i
	}
	for _, it := range src {
		if i, ok := idx[it.Name]; ok {
			dst[i].Qty += it.Qty
			continue
		}
		idx[it.Name] = len(dst)
		dst = append(dst, store.LineItem{Name: it.Name, Qty: it.Qty})
	}
	return dst
}
