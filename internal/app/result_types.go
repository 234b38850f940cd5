package app

import "order-desk/internal/core"

// OrderResult is returned by order operations.
type OrderResult struct {
	Order    *core.Order
	Replayed bool // true when an idempotency key matched an earlier request
}

// OrderListResult is returned by ListOrders.
type OrderListResult struct {
	Orders []core.Order
}

// CustomerListResult is returned by ListCustomers.
type CustomerListResult struct {
	Customers []core.Customer
}

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product
}

// ProcurementListResult is returned by ListProcurements.
type ProcurementListResult struct {
	Procurements []core.Procurement
}

// UserSession is returned by a successful login.
type UserSession struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserResult is a user profile without credentials.
type UserResult struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
