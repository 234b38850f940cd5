package app

// CreateCustomerRequest is the input for registering a customer.
type CreateCustomerRequest struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Type       string `json:"type"` // PERSONAL (default) or RESELLER
}

// CreateProductRequest is the input for adding a product to the catalog.
type CreateProductRequest struct {
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Description string `json:"description"`
}

// CreateVariantRequest is the input for adding a variant to a product.
type CreateVariantRequest struct {
	ProductID       int               `json:"-"`
	Options         map[string]string `json:"options"`
	Unit            string            `json:"unit"`
	InitialStock    string            `json:"initial_stock"` // decimal string, empty means 0
	PreorderAllowed *bool             `json:"preorder_allowed"`
	Prices          map[string]int64  `json:"prices"` // currency → minor units
}

// PlaceOrderRequest is the input for placing an order.
type PlaceOrderRequest struct {
	CustomerID     int                `json:"customer_id"`
	Currency       string             `json:"currency"`
	PaymentType    string             `json:"payment_type"`
	DeliveryFee    int64              `json:"delivery_fee"`
	Notes          string             `json:"notes"`
	Items          []OrderItemRequest `json:"items"`
	IdempotencyKey string             `json:"-"`
}

// OrderItemRequest is a single line within a PlaceOrderRequest.
type OrderItemRequest struct {
	VariantID int    `json:"variant_id"`
	Quantity  string `json:"quantity"` // decimal string
}

// ListOrdersRequest filters ListOrders. Empty fields match everything.
type ListOrdersRequest struct {
	CustomerID    int
	PaymentStatus string
	PackingStatus string
	Limit         int
}

// UpdateOrderRequest carries the staff-editable order fields; nil means unchanged.
type UpdateOrderRequest struct {
	OrderID       int     `json:"-"`
	PaymentStatus *string `json:"payment_status"`
	PackingStatus *string `json:"packing_status"`
	Notes         *string `json:"notes"`
	DeliveryFee   *int64  `json:"delivery_fee"`
}

// UpdateProcurementRequest moves a procurement to Status, optionally replacing its notes.
type UpdateProcurementRequest struct {
	ProcurementID int     `json:"-"`
	Status        string  `json:"status"`
	Notes         *string `json:"notes"`
}
