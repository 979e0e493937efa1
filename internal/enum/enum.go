package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending = "PENDING"
	OrderStatusDone    = "DONE"
)

// ── Catalog item types (CHECK constrained in DB) ──

const (
	ItemTypePlain   = "PLAIN"
	ItemTypeCombo   = "COMBO"
	ItemTypeFilling = "FILLING"
)

// ── Flavor labels (configurable, no DB constraint) ──

const (
	FlavorPlain      = "plain"
	FlavorCheese     = "cheese"
	FlavorOreo       = "oreo"
	FlavorBrownSugar = "brown-sugar"
)
