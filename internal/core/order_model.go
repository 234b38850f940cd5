package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType is how the customer intends to pay. It carries no derived logic.
type PaymentType string

const (
	PaymentCash         PaymentType = "CASH"
	PaymentBankTransfer PaymentType = "BANK_TRANSFER"
	PaymentEWallet      PaymentType = "E_WALLET"
	PaymentCOD          PaymentType = "COD"
)

func (p PaymentType) Valid() bool {
	switch p {
	case PaymentCash, PaymentBankTransfer, PaymentEWallet, PaymentCOD:
		return true
	}
	return false
}

// PaymentStatus is set by staff; there is no enforced transition graph.
type PaymentStatus string

const (
	PaymentNotPaid     PaymentStatus = "NOT_PAID"
	PaymentDownPayment PaymentStatus = "DOWN_PAYMENT"
	PaymentPaid        PaymentStatus = "PAID"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentNotPaid, PaymentDownPayment, PaymentPaid:
		return true
	}
	return false
}

// PackingStatus is set by staff; there is no enforced transition graph.
type PackingStatus string

const (
	PackingNotReady PackingStatus = "NOT_READY"
	PackingPacked   PackingStatus = "PACKED"
	PackingShipped  PackingStatus = "SHIPPED"
)

func (s PackingStatus) Valid() bool {
	switch s {
	case PackingNotReady, PackingPacked, PackingShipped:
		return true
	}
	return false
}

// Order is one customer purchase. Monetary amounts are integer minor units of Currency.
type Order struct {
	ID            int           `json:"id"`
	OrderNumber   string        `json:"order_number"`
	CustomerID    int           `json:"customer_id"`
	Customer      *Customer     `json:"customer,omitempty"`
	Currency      string        `json:"currency"`
	PaymentType   PaymentType   `json:"payment_type"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PackingStatus PackingStatus `json:"packing_status"`
	DeliveryFee   int64         `json:"delivery_fee"`
	Notes         string        `json:"notes"`
	Items         []OrderItem   `json:"items"`
	Procurements  []Procurement `json:"procurements"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ItemsTotal sums the line totals of the hydrated items.
func (o *Order) ItemsTotal() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.LineTotal()
	}
	return total
}

// GrandTotal is the items total plus the delivery fee.
func (o *Order) GrandTotal() int64 {
	return o.ItemsTotal() + o.DeliveryFee
}

// OrderItem is one priced line. UnitPrice is a snapshot taken at placement time.
type OrderItem struct {
	ID         int             `json:"id"`
	OrderID    int             `json:"order_id"`
	LineNumber int             `json:"line_number"`
	VariantID  int             `json:"variant_id"`
	Variant    *Variant        `json:"variant,omitempty"` // joined from variants
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  int64           `json:"unit_price"`
	IsPreorder bool            `json:"is_preorder"`
	CreatedAt  time.Time       `json:"created_at"`
}

// LineTotal is quantity × unit price rounded half away from zero to whole minor units.
func (it OrderItem) LineTotal() int64 {
	return it.Quantity.Mul(decimal.NewFromInt(it.UnitPrice)).Round(0).IntPart()
}

// OrderLineInput is a single requested line in PlaceOrderInput.
type OrderLineInput struct {
	VariantID int
	Quantity  decimal.Decimal
}

// PlaceOrderInput is the already-validated input of the placement workflow.
type PlaceOrderInput struct {
	CustomerID  int
	Currency    string
	PaymentType PaymentType
	DeliveryFee int64
	Notes       string
	Items       []OrderLineInput
}

// OrderUpdate carries the staff-editable fields of an order. Nil fields are left unchanged.
type OrderUpdate struct {
	PaymentStatus *PaymentStatus
	PackingStatus *PackingStatus
	Notes         *string
	DeliveryFee   *int64
}

// OrderFilter narrows ListOrders. Zero values mean "any".
type OrderFilter struct {
	CustomerID    int
	PaymentStatus PaymentStatus
	PackingStatus PackingStatus
	Limit         int
}
