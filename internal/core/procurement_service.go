package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ProcurementService is the to-buy ledger.
type ProcurementService interface {
	// CreateTx inserts a TO_BUY record for a shortfall inside the caller's transaction.
	CreateTx(ctx context.Context, tx Tx, orderID, variantID int, neededQty decimal.Decimal) (*Procurement, error)

	// Transition moves a procurement forward. Re-submitting the current status is a no-op
	// for status and stock (notes, when given, are still saved); moving backward fails with
	// ErrInvalidTransition. Entering ARRIVED credits NeededQty to the variant's stock in
	// the same transaction, exactly once.
	Transition(ctx context.Context, id int, status ProcurementStatus, notes *string) (*Procurement, error)

	Get(ctx context.Context, id int) (*Procurement, error)
	List(ctx context.Context, filter ProcurementFilter) ([]Procurement, error)
}

type procurementService struct {
	store   Store
	catalog CatalogService
	now     func() time.Time
}

func NewProcurementService(store Store, catalog CatalogService) ProcurementService {
	return &procurementService{store: store, catalog: catalog, now: time.Now}
}

func (s *procurementService) CreateTx(ctx context.Context, tx Tx, orderID, variantID int, neededQty decimal.Decimal) (*Procurement, error) {
	if !neededQty.IsPositive() {
		return nil, fmt.Errorf("procurement for variant %d needs a positive quantity, got %s", variantID, neededQty)
	}
	p := &Procurement{
		OrderID:   orderID,
		VariantID: variantID,
		NeededQty: neededQty,
		Status:    ProcurementToBuy,
	}
	if err := tx.InsertProcurement(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to insert procurement for variant %d: %w", variantID, err)
	}
	return p, nil
}

func (s *procurementService) Transition(ctx context.Context, id int, status ProcurementStatus, notes *string) (*Procurement, error) {
	if !status.Valid() {
		return nil, Invalid("status", "unknown procurement status %q", status)
	}

	var result *Procurement
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		p, err := tx.LockProcurement(ctx, id)
		if err != nil {
			return fmt.Errorf("procurement %d: %w", id, err)
		}

		switch {
		case p.Status == status:
			if notes == nil || *notes == p.Notes {
				result = p
				return nil
			}
		case status.Before(p.Status):
			return fmt.Errorf("procurement %d cannot move from %s to %s: %w", id, p.Status, status, ErrInvalidTransition)
		default:
			now := s.now()
			if status == ProcurementArrived {
				// The row lock above makes this the only transaction that can observe the
				// non-ARRIVED state, so the credit happens once.
				if _, err := s.catalog.AdjustStockTx(ctx, tx, p.VariantID, p.NeededQty, StockAdjustment{Policy: RejectNegative}); err != nil {
					return fmt.Errorf("failed to credit stock for procurement %d: %w", id, err)
				}
				p.ArrivedAt = &now
			}
			if status != ProcurementToBuy && p.OrderedAt == nil {
				p.OrderedAt = &now
			}
			p.Status = status
		}

		if notes != nil {
			p.Notes = *notes
		}
		if err := tx.UpdateProcurement(ctx, p); err != nil {
			return fmt.Errorf("failed to update procurement %d: %w", id, err)
		}
		result, err = tx.GetProcurement(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *procurementService) Get(ctx context.Context, id int) (*Procurement, error) {
	var p *Procurement
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		p, err = tx.GetProcurement(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("procurement %d: %w", id, err)
	}
	return p, nil
}

func (s *procurementService) List(ctx context.Context, filter ProcurementFilter) ([]Procurement, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, Invalid("status", "unknown procurement status %q", filter.Status)
	}
	var out []Procurement
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.ListProcurements(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list procurements: %w", err)
	}
	return out, nil
}
