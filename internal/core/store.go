package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store opens units of work against the persistence layer. Every change made through the
// Tx handed to fn is committed when fn returns nil and rolled back otherwise.
// Implementations report retryable aborts (lock conflicts, serialization failures) as
// errors wrapping ErrConflict.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of repository operations available inside one unit of work.
type Tx interface {
	CatalogRepo
	OrderRepo
	ProcurementRepo
	UserRepo
}

// CatalogRepo persists customers, products, variants and their prices.
// Read methods return ErrNotFound for unknown ids.
type CatalogRepo interface {
	InsertCustomer(ctx context.Context, c *Customer) error
	GetCustomer(ctx context.Context, id int) (*Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)

	InsertProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id int) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	// InsertVariant stores v and its Prices. A second variant with the same
	// (ProductID, OptionSignature) fails with ErrDuplicate.
	InsertVariant(ctx context.Context, v *Variant) error
	GetVariant(ctx context.Context, id int) (*Variant, error)
	// LockVariant reads the variant and holds a row lock on it until the unit of work ends.
	LockVariant(ctx context.Context, id int) (*Variant, error)
	ListVariants(ctx context.Context, productID int) ([]Variant, error)
	UpdateVariantStock(ctx context.Context, id int, stock decimal.Decimal) error
	SetVariantActive(ctx context.Context, id int, active bool) error
	UpsertVariantPrice(ctx context.Context, id int, currency string, amount int64) error
}

// OrderRepo persists order headers and their items.
type OrderRepo interface {
	// NextOrderSequence atomically increments and returns the named counter.
	NextOrderSequence(ctx context.Context, name string) (int64, error)
	InsertOrder(ctx context.Context, o *Order) error
	InsertOrderItem(ctx context.Context, it *OrderItem) error
	GetOrder(ctx context.Context, id int) (*Order, error)
	LockOrder(ctx context.Context, id int) (*Order, error)
	FindOrderIDByNumber(ctx context.Context, orderNumber string) (int, error)
	UpdateOrder(ctx context.Context, o *Order) error
	// ListOrderItems returns the order's items by line number with Variant joined.
	ListOrderItems(ctx context.Context, orderID int) ([]OrderItem, error)
	// ListOrders returns headers newest first with Customer joined.
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
}

// ProcurementRepo persists to-buy records. Reads join the Variant.
type ProcurementRepo interface {
	InsertProcurement(ctx context.Context, p *Procurement) error
	GetProcurement(ctx context.Context, id int) (*Procurement, error)
	LockProcurement(ctx context.Context, id int) (*Procurement, error)
	UpdateProcurement(ctx context.Context, p *Procurement) error
	ListProcurements(ctx context.Context, filter ProcurementFilter) ([]Procurement, error)
}

// UserRepo persists staff accounts.
type UserRepo interface {
	InsertUser(ctx context.Context, u *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, id int) (*User, error)
}
