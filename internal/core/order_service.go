package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// orderSequenceName is the counter row that backs order numbers.
const orderSequenceName = "orders"

// OrderService is the order ledger: numbering, header/item persistence and hydrated reads.
type OrderService interface {
	// NextOrderNumberTx allocates the next order number inside the caller's transaction.
	// The counter increment rolls back with the transaction, so numbers stay gapless.
	NextOrderNumberTx(ctx context.Context, tx Tx) (string, error)
	// CreateOrderTx inserts a header with NOT_PAID / NOT_READY statuses.
	CreateOrderTx(ctx context.Context, tx Tx, o *Order) error
	AddItemTx(ctx context.Context, tx Tx, it *OrderItem) error
	// GetOrderTx returns the order with customer, items and procurements joined.
	GetOrderTx(ctx context.Context, tx Tx, orderID int) (*Order, error)

	GetOrder(ctx context.Context, orderID int) (*Order, error)
	// GetOrderByRef accepts a numeric id or an order number.
	GetOrderByRef(ctx context.Context, ref string) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
	// UpdateStatus overwrites the staff-editable fields. No transition rules apply.
	UpdateStatus(ctx context.Context, orderID int, upd OrderUpdate) (*Order, error)
}

type orderService struct {
	store  Store
	prefix string
}

// NewOrderService builds the order ledger. prefix is the order number prefix, e.g. "TK".
func NewOrderService(store Store, prefix string) OrderService {
	if prefix == "" {
		prefix = "TK"
	}
	return &orderService{store: store, prefix: prefix}
}

// FormatOrderNumber renders a counter value as PREFIX-000123.
func FormatOrderNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}

func (s *orderService) NextOrderNumberTx(ctx context.Context, tx Tx) (string, error) {
	n, err := tx.NextOrderSequence(ctx, orderSequenceName)
	if err != nil {
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}
	return FormatOrderNumber(s.prefix, n), nil
}

func (s *orderService) CreateOrderTx(ctx context.Context, tx Tx, o *Order) error {
	o.PaymentStatus = PaymentNotPaid
	o.PackingStatus = PackingNotReady
	if err := tx.InsertOrder(ctx, o); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (s *orderService) AddItemTx(ctx context.Context, tx Tx, it *OrderItem) error {
	if err := tx.InsertOrderItem(ctx, it); err != nil {
		return fmt.Errorf("failed to insert order line %d: %w", it.LineNumber, err)
	}
	return nil
}

func (s *orderService) GetOrderTx(ctx context.Context, tx Tx, orderID int) (*Order, error) {
	o, err := tx.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, err)
	}
	if o.Customer, err = tx.GetCustomer(ctx, o.CustomerID); err != nil {
		return nil, fmt.Errorf("failed to fetch customer of order %d: %w", orderID, err)
	}
	if o.Items, err = tx.ListOrderItems(ctx, orderID); err != nil {
		return nil, fmt.Errorf("failed to fetch items of order %d: %w", orderID, err)
	}
	if o.Procurements, err = tx.ListProcurements(ctx, ProcurementFilter{OrderID: orderID}); err != nil {
		return nil, fmt.Errorf("failed to fetch procurements of order %d: %w", orderID, err)
	}
	return o, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	var o *Order
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		o, err = s.GetOrderTx(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *orderService) GetOrderByRef(ctx context.Context, ref string) (*Order, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.Atoi(ref); err == nil {
		return s.GetOrder(ctx, id)
	}

	var o *Order
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		id, err := tx.FindOrderIDByNumber(ctx, ref)
		if err != nil {
			return fmt.Errorf("order %s: %w", ref, err)
		}
		o, err = s.GetOrderTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, Invalid("payment_status", "unknown payment status %q", filter.PaymentStatus)
	}
	if filter.PackingStatus != "" && !filter.PackingStatus.Valid() {
		return nil, Invalid("packing_status", "unknown packing status %q", filter.PackingStatus)
	}

	var orders []Order
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		orders, err = tx.ListOrders(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID int, upd OrderUpdate) (*Order, error) {
	if upd.PaymentStatus != nil && !upd.PaymentStatus.Valid() {
		return nil, Invalid("payment_status", "unknown payment status %q", *upd.PaymentStatus)
	}
	if upd.PackingStatus != nil && !upd.PackingStatus.Valid() {
		return nil, Invalid("packing_status", "unknown packing status %q", *upd.PackingStatus)
	}
	if upd.DeliveryFee != nil && *upd.DeliveryFee < 0 {
		return nil, Invalid("delivery_fee", "must not be negative")
	}

	var o *Order
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("order %d: %w", orderID, err)
		}
		if upd.PaymentStatus != nil {
			current.PaymentStatus = *upd.PaymentStatus
		}
		if upd.PackingStatus != nil {
			current.PackingStatus = *upd.PackingStatus
		}
		if upd.Notes != nil {
			current.Notes = *upd.Notes
		}
		if upd.DeliveryFee != nil {
			current.DeliveryFee = *upd.DeliveryFee
		}
		if err := tx.UpdateOrder(ctx, current); err != nil {
			return fmt.Errorf("failed to update order %d: %w", orderID, err)
		}
		o, err = s.GetOrderTx(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// IsNotFound reports whether err means a referenced record is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
