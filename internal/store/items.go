package store

import (
	"encoding/json"
	"fmt"
	"sort"
)

// The orders.items column has gone through several historical shapes:
//
//	canonical: [{"id":"..","name":"cheese","qty":1}, ...]
//	early list: [{"name":"cheese","qty":2}]            (no line ids)
//	flavor list: {"flavors":["cheese","cheese","oreo"]}
//	counters:    {"plainCount":2} / {"comboCounts":{"cheese":1,...}}
//
// Everything downstream of the store sees only the canonical shape;
// normalizeItems maps the rest at the scan boundary.

type legacyDoc struct {
	Flavors     []string         `json:"flavors"`
	PlainCount  int32            `json:"plainCount"`
	ComboCounts map[string]int32 `json:"comboCounts"`
}

func normalizeItems(raw []byte) ([]LineItem, error) {
	var items []LineItem
	if err := json.Unmarshal(raw, &items); err == nil {
		for i := range items {
			if items[i].ID == "" {
				items[i].ID = fmt.Sprintf("legacy-%d", i)
			}
			if items[i].Qty < 1 {
				items[i].Qty = 1
			}
		}
		return items, nil
	}

	var doc legacyDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}

	switch {
	case len(doc.Flavors) > 0:
		items = make([]LineItem, len(doc.Flavors))
		for i, f := range doc.Flavors {
			items[i] = LineItem{ID: fmt.Sprintf("legacy-%d", i), Name: f, Qty: 1}
		}
	case doc.PlainCount > 0:
		items = []LineItem{{ID: "legacy-0", Name: "plain", Qty: doc.PlainCount}}
	case len(doc.ComboCounts) > 0:
		names := make([]string, 0, len(doc.ComboCounts))
		for name := range doc.ComboCounts {
			names = append(names, name)
		}
		sort.Strings(names)
		for i, name := range names {
			if doc.ComboCounts[name] < 1 {
				continue
			}
			items = append(items, LineItem{
				ID:   fmt.Sprintf("legacy-%d", i),
				Name: name,
				Qty:  doc.ComboCounts[name],
			})
		}
	}
	return items, nil
}

func marshalItems(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(items)
}
