package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// PlacementRecorder observes placement outcomes. Implementations must be safe for
// concurrent use.
type PlacementRecorder interface {
	OrderPlaced(lines, preorderLines, procurements int)
	PlacementRetried()
	PlacementFailed(err error)
}

// PlacementOptions tunes the placement workflow.
type PlacementOptions struct {
	// MaxAttempts bounds how many times a conflicting unit of work is re-run. Default 3.
	MaxAttempts int
	// BaseBackoff is the delay before the first retry; it doubles per attempt. Default 20ms.
	BaseBackoff time.Duration
	// DefaultCurrency prices orders that do not name one. Default "IDR".
	DefaultCurrency string
	Logger          *slog.Logger
	Recorder        PlacementRecorder
}

// PlacementService turns an order submission into stock decrements, preorder flags,
// procurement records and a persisted order, all in one transaction.
type PlacementService interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Order, error)
}

type placementService struct {
	store        Store
	catalog      CatalogService
	orders       OrderService
	procurements ProcurementService
	opts         PlacementOptions
}

func NewPlacementService(store Store, catalog CatalogService, orders OrderService, procurements ProcurementService, opts PlacementOptions) PlacementService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 20 * time.Millisecond
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "IDR"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &placementService{
		store:        store,
		catalog:      catalog,
		orders:       orders,
		procurements: procurements,
		opts:         opts,
	}
}

// PlaceOrder validates the input, then runs the reconciliation in one transaction,
// re-running it from scratch when the store reports a conflict.
func (s *placementService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Order, error) {
	input, err := s.normalize(input)
	if err != nil {
		s.opts.Recorder.PlacementFailed(err)
		return nil, err
	}

	var order *Order
	for attempt := 0; attempt < s.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			s.opts.Recorder.PlacementRetried()
			s.opts.Logger.WarnContext(ctx, "retrying order placement",
				"attempt", attempt+1, "customer_id", input.CustomerID, "error", err)
			if werr := s.backoff(ctx, attempt); werr != nil {
				err = werr
				break
			}
		}

		order, err = s.placeOnce(ctx, input)
		if err == nil || !errors.Is(err, ErrConflict) {
			break
		}
	}

	if err != nil {
		s.opts.Recorder.PlacementFailed(err)
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("order placement gave up after %d attempts: %w", s.opts.MaxAttempts, err)
		}
		return nil, err
	}

	preorders := 0
	for _, it := range order.Items {
		if it.IsPreorder {
			preorders++
		}
	}
	s.opts.Recorder.OrderPlaced(len(order.Items), preorders, len(order.Procurements))
	s.opts.Logger.InfoContext(ctx, "order placed",
		"order_id", order.ID, "order_number", order.OrderNumber,
		"lines", len(order.Items), "preorder_lines", preorders, "procurements", len(order.Procurements))
	return order, nil
}

func (s *placementService) normalize(input PlaceOrderInput) (PlaceOrderInput, error) {
	if input.CustomerID <= 0 {
		return input, Invalid("customer_id", "customer is required")
	}
	if len(input.Items) == 0 {
		return input, Invalid("items", "order must have at least one item")
	}
	if input.DeliveryFee < 0 {
		return input, Invalid("delivery_fee", "must not be negative")
	}
	if input.PaymentType == "" {
		input.PaymentType = PaymentCash
	}
	if !input.PaymentType.Valid() {
		return input, Invalid("payment_type", "unknown payment type %q", input.PaymentType)
	}
	input.Currency = normalizeCurrency(input.Currency)
	if input.Currency == "" {
		input.Currency = s.opts.DefaultCurrency
	}
	for i, item := range input.Items {
		if item.VariantID <= 0 {
			return input, Invalid(fmt.Sprintf("items[%d].variant_id", i), "variant is required")
		}
		field := fmt.Sprintf("items[%d].quantity", i)
		if !item.Quantity.IsPositive() {
			return input, Invalid(field, "must be positive, got %s", item.Quantity)
		}
		if err := checkQuantity(field, item.Quantity); err != nil {
			return input, err
		}
	}
	return input, nil
}

func (s *placementService) placeOnce(ctx context.Context, input PlaceOrderInput) (*Order, error) {
	var order *Order
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetCustomer(ctx, input.CustomerID); err != nil {
			if IsNotFound(err) {
				return Invalid("customer_id", "customer %d does not exist", input.CustomerID)
			}
			return fmt.Errorf("failed to resolve customer %d: %w", input.CustomerID, err)
		}

		number, err := s.orders.NextOrderNumberTx(ctx, tx)
		if err != nil {
			return err
		}
		header := &Order{
			OrderNumber: number,
			CustomerID:  input.CustomerID,
			Currency:    input.Currency,
			PaymentType: input.PaymentType,
			DeliveryFee: input.DeliveryFee,
			Notes:       input.Notes,
		}
		if err := s.orders.CreateOrderTx(ctx, tx, header); err != nil {
			return err
		}

		for i, line := range input.Items {
			if err := s.reconcileLine(ctx, tx, header, i, line); err != nil {
				return err
			}
		}

		order, err = s.orders.GetOrderTx(ctx, tx, header.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// reconcileLine decides whether one requested line is covered by stock, adjusts stock,
// records any shortfall and persists the priced item.
func (s *placementService) reconcileLine(ctx context.Context, tx Tx, order *Order, index int, line OrderLineInput) error {
	field := fmt.Sprintf("items[%d].variant_id", index)

	variant, err := tx.LockVariant(ctx, line.VariantID)
	if err != nil {
		if IsNotFound(err) {
			return Invalid(field, "variant %d does not exist", line.VariantID)
		}
		return fmt.Errorf("failed to lock variant %d: %w", line.VariantID, err)
	}
	if !variant.IsActive {
		return Invalid(field, "variant %d is disabled", line.VariantID)
	}
	unitPrice, ok := variant.PriceFor(order.Currency)
	if !ok {
		return Invalid(field, "variant %d has no %s price", line.VariantID, order.Currency)
	}

	available := variant.StockOnHand
	requested := line.Quantity
	item := &OrderItem{
		OrderID:    order.ID,
		LineNumber: index + 1,
		VariantID:  variant.ID,
		Quantity:   requested,
		UnitPrice:  unitPrice,
	}

	if requested.LessThanOrEqual(available) {
		if _, err := s.catalog.AdjustStockTx(ctx, tx, variant.ID, requested.Neg(),
			StockAdjustment{Policy: RejectNegative, Expected: &available}); err != nil {
			return err
		}
	} else {
		item.IsPreorder = true
		onHand := decimal.Max(available, decimal.Zero)
		needed := requested.Sub(onHand)
		if !onHand.IsZero() {
			if _, err := s.catalog.AdjustStockTx(ctx, tx, variant.ID, onHand.Neg(),
				StockAdjustment{Policy: ClampToZero, Expected: &available}); err != nil {
				return err
			}
		}
		if _, err := s.procurements.CreateTx(ctx, tx, order.ID, variant.ID, needed); err != nil {
			return err
		}
	}

	return s.orders.AddItemTx(ctx, tx, item)
}

// backoff sleeps BaseBackoff·2^(attempt-1) plus up to half of that as jitter.
func (s *placementService) backoff(ctx context.Context, attempt int) error {
	exp := s.opts.BaseBackoff * time.Duration(1<<(attempt-1))
	jitter := time.Duration(rand.Int63n(int64(exp/2) + 1))
	t := time.NewTimer(exp + jitter)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopRecorder struct{}

func (nopRecorder) OrderPlaced(int, int, int) {}
func (nopRecorder) PlacementRetried()         {}
func (nopRecorder) PlacementFailed(error)     {}
