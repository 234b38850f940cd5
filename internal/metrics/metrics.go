// Package metrics keeps in-process counters for the order placement workflow.
package metrics

import (
	"errors"
	"sync/atomic"

	"order-desk/internal/core"
)

// Collector implements core.PlacementRecorder.
type Collector struct {
	ordersPlaced     atomic.Int64
	linesPlaced      atomic.Int64
	preorderLines    atomic.Int64
	procurements     atomic.Int64
	retries          atomic.Int64
	validationErrors atomic.Int64
	conflictFailures atomic.Int64
	otherFailures    atomic.Int64
}

var _ core.PlacementRecorder = (*Collector)(nil)

func New() *Collector {
	return &Collector{}
}

func (c *Collector) OrderPlaced(lines, preorderLines, procurements int) {
	c.ordersPlaced.Add(1)
	c.linesPlaced.Add(int64(lines))
	c.preorderLines.Add(int64(preorderLines))
	c.procurements.Add(int64(procurements))
}

func (c *Collector) PlacementRetried() {
	c.retries.Add(1)
}

func (c *Collector) PlacementFailed(err error) {
	switch {
	case core.IsValidation(err):
		c.validationErrors.Add(1)
	case errors.Is(err, core.ErrConflict):
		c.conflictFailures.Add(1)
	default:
		c.otherFailures.Add(1)
	}
}

type Stats struct {
	OrdersPlaced     int64   `json:"orders_placed"`
	LinesPlaced      int64   `json:"lines_placed"`
	PreorderLines    int64   `json:"preorder_lines"`
	Procurements     int64   `json:"procurements_created"`
	Retries          int64   `json:"placement_retries"`
	ValidationErrors int64   `json:"validation_errors"`
	ConflictFailures int64   `json:"conflict_failures"`
	OtherFailures    int64   `json:"other_failures"`
	PreorderRate     float64 `json:"preorder_rate_percent"`
}

func (c *Collector) GetStats() Stats {
	s := Stats{
		OrdersPlaced:     c.ordersPlaced.Load(),
		LinesPlaced:      c.linesPlaced.Load(),
		PreorderLines:    c.preorderLines.Load(),
		Procurements:     c.procurements.Load(),
		Retries:          c.retries.Load(),
		ValidationErrors: c.validationErrors.Load(),
		ConflictFailures: c.conflictFailures.Load(),
		OtherFailures:    c.otherFailures.Load(),
	}
	if s.LinesPlaced > 0 {
		s.PreorderRate = float64(s.PreorderLines) / float64(s.LinesPlaced) * 100
	}
	return s
}
