package app

import (
	"context"
	"errors"

	"order-desk/internal/ai"
	"order-desk/internal/core"
	"order-desk/internal/metrics"
)

// ErrAIUnavailable is returned by DraftOrder when no assistant is configured.
var ErrAIUnavailable = errors.New("order assistant is not configured")

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// Customers
	ListCustomers(ctx context.Context) (*CustomerListResult, error)
	GetCustomer(ctx context.Context, id int) (*core.Customer, error)
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*core.Customer, error)

	// Catalog
	ListProducts(ctx context.Context) (*ProductListResult, error)
	GetProduct(ctx context.Context, id int) (*core.Product, error)
	CreateProduct(ctx context.Context, req CreateProductRequest) (*core.Product, error)
	// CreateVariant parses the decimal initial stock and adds a variant to a product.
	CreateVariant(ctx context.Context, req CreateVariantRequest) (*core.Variant, error)
	GetVariant(ctx context.Context, id int) (*core.Variant, error)
	SetVariantPrice(ctx context.Context, variantID int, currency string, amount int64) (*core.Variant, error)
	DisableVariant(ctx context.Context, variantID int) (*core.Variant, error)

	// PlaceOrder runs the placement workflow. When req.IdempotencyKey is set, a repeated
	// key returns the order created by the first request with Replayed set, and a key
	// whose first request is still running fails with idempotency.ErrInFlight. Reusing a
	// key with a different request body fails with idempotency.ErrKeyReused.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error)

	// GetOrder returns a single order by numeric ID or order number string.
	GetOrder(ctx context.Context, ref string) (*OrderResult, error)
	ListOrders(ctx context.Context, req ListOrdersRequest) (*OrderListResult, error)
	// UpdateOrder overwrites payment/packing status, notes and delivery fee.
	UpdateOrder(ctx context.Context, req UpdateOrderRequest) (*OrderResult, error)

	// Procurement
	ListProcurements(ctx context.Context, status string) (*ProcurementListResult, error)
	GetProcurement(ctx context.Context, id int) (*core.Procurement, error)
	// UpdateProcurement advances a procurement; reaching ARRIVED restocks the variant.
	UpdateProcurement(ctx context.Context, req UpdateProcurementRequest) (*core.Procurement, error)

	// DraftOrder asks the assistant to turn a customer message into a draft order against
	// the active catalog. The draft is returned for review, never placed.
	DraftOrder(ctx context.Context, message string) (*ai.OrderDraft, error)

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)
	// GetUser returns user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)
	CreateUser(ctx context.Context, username, password, role string) (*UserResult, error)

	// PlacementStats returns the placement counters since process start.
	PlacementStats() metrics.Stats
}
