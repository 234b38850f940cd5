package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcurementStatus is the lifecycle of a to-buy task:
//
//	TO_BUY → ORDERED → ARRIVED
//
// Moves are forward-only; ARRIVED is terminal.
type ProcurementStatus string

const (
	ProcurementToBuy   ProcurementStatus = "TO_BUY"
	ProcurementOrdered ProcurementStatus = "ORDERED"
	ProcurementArrived ProcurementStatus = "ARRIVED"
)

var procurementRank = map[ProcurementStatus]int{
	ProcurementToBuy:   0,
	ProcurementOrdered: 1,
	ProcurementArrived: 2,
}

func (s ProcurementStatus) Valid() bool {
	_, ok := procurementRank[s]
	return ok
}

// Before reports whether s comes strictly before next in the lifecycle.
func (s ProcurementStatus) Before(next ProcurementStatus) bool {
	return procurementRank[s] < procurementRank[next]
}

// Procurement is outstanding restocking work created from an order shortfall.
type Procurement struct {
	ID        int               `json:"id"`
	OrderID   int               `json:"order_id"`
	VariantID int               `json:"variant_id"`
	Variant   *Variant          `json:"variant,omitempty"` // joined from variants
	NeededQty decimal.Decimal   `json:"needed_qty"`
	Status    ProcurementStatus `json:"status"`
	Notes     string            `json:"notes"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	OrderedAt *time.Time        `json:"ordered_at,omitempty"`
	ArrivedAt *time.Time        `json:"arrived_at,omitempty"`
}

// ProcurementFilter narrows ListProcurements. Zero values mean "any".
type ProcurementFilter struct {
	Status    ProcurementStatus
	OrderID   int
	VariantID int
}
