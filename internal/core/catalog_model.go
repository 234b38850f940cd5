package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerType distinguishes end customers from resellers.
type CustomerType string

const (
	CustomerPersonal CustomerType = "PERSONAL"
	CustomerReseller CustomerType = "RESELLER"
)

// Valid reports whether t is a known customer type.
func (t CustomerType) Valid() bool {
	return t == CustomerPersonal || t == CustomerReseller
}

// Customer is a contact record referenced by orders.
type Customer struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	Phone      string       `json:"phone"`
	Address    string       `json:"address"`
	City       string       `json:"city"`
	PostalCode string       `json:"postal_code"`
	Type       CustomerType `json:"type"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Product groups the sellable variants of one catalog item.
type Product struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	Variants    []Variant `json:"variants,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Variant is the unit of sale: one option combination of a product with its own stock.
// Prices are integer minor currency units keyed by ISO currency code.
type Variant struct {
	ID              int               `json:"id"`
	ProductID       int               `json:"product_id"`
	ProductName     string            `json:"product_name"` // joined from products
	Options         map[string]string `json:"options"`
	OptionSignature string            `json:"option_signature"`
	Unit            string            `json:"unit"`
	StockOnHand     decimal.Decimal   `json:"stock_on_hand"`
	PreorderAllowed bool              `json:"preorder_allowed"`
	IsActive        bool              `json:"is_active"`
	Prices          map[string]int64  `json:"prices,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// PriceFor returns the variant's price in the given currency.
func (v *Variant) PriceFor(currency string) (int64, bool) {
	p, ok := v.Prices[currency]
	return p, ok
}

// CustomerInput is the input for CreateCustomer.
type CustomerInput struct {
	Name       string
	Phone      string
	Address    string
	City       string
	PostalCode string
	Type       CustomerType
}

// ProductInput is the input for CreateProduct.
type ProductInput struct {
	Name        string
	Brand       string
	Description string
}

// VariantInput is the input for CreateVariant. InitialStock must not be negative.
type VariantInput struct {
	Options         map[string]string
	Unit            string
	InitialStock    decimal.Decimal
	PreorderAllowed bool
	Prices          map[string]int64
}
