package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"order-desk/internal/ai"
	"order-desk/internal/core"
	"order-desk/internal/idempotency"
	"order-desk/internal/metrics"

	"github.com/shopspring/decimal"
)

// Services bundles what the application layer drives. Agent may be nil, in which case
// DraftOrder returns ErrAIUnavailable.
type Services struct {
	Catalog      core.CatalogService
	Orders       core.OrderService
	Procurements core.ProcurementService
	Placement    core.PlacementService
	Users        core.UserService
	Idempotency  idempotency.Store
	Metrics      *metrics.Collector
	Agent        ai.OrderDrafter

	DefaultCurrency string
	Logger          *slog.Logger
}

type appService struct {
	Services
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(s Services) ApplicationService {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Metrics == nil {
		s.Metrics = metrics.New()
	}
	if s.DefaultCurrency == "" {
		s.DefaultCurrency = "IDR"
	}
	return &appService{Services: s}
}

// ── Customers ────────────────────────────────────────────────────────────────

func (s *appService) ListCustomers(ctx context.Context) (*CustomerListResult, error) {
	customers, err := s.Catalog.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	return &CustomerListResult{Customers: customers}, nil
}

func (s *appService) GetCustomer(ctx context.Context, id int) (*core.Customer, error) {
	return s.Catalog.GetCustomer(ctx, id)
}

func (s *appService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*core.Customer, error) {
	return s.Catalog.CreateCustomer(ctx, core.CustomerInput{
		Name:       req.Name,
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Type:       core.CustomerType(strings.ToUpper(strings.TrimSpace(req.Type))),
	})
}

// ── Catalog ──────────────────────────────────────────────────────────────────

func (s *appService) ListProducts(ctx context.Context) (*ProductListResult, error) {
	products, err := s.Catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) GetProduct(ctx context.Context, id int) (*core.Product, error) {
	return s.Catalog.GetProduct(ctx, id)
}

func (s *appService) CreateProduct(ctx context.Context, req CreateProductRequest) (*core.Product, error) {
	return s.Catalog.CreateProduct(ctx, core.ProductInput{
		Name:        req.Name,
		Brand:       req.Brand,
		Description: req.Description,
	})
}

func (s *appService) CreateVariant(ctx context.Context, req CreateVariantRequest) (*core.Variant, error) {
	stock := decimal.Zero
	if raw := strings.TrimSpace(req.InitialStock); raw != "" {
		var err error
		if stock, err = decimal.NewFromString(raw); err != nil {
			return nil, core.Invalid("initial_stock", "invalid decimal %q", req.InitialStock)
		}
	}
	preorder := true
	if req.PreorderAllowed != nil {
		preorder = *req.PreorderAllowed
	}
	return s.Catalog.CreateVariant(ctx, req.ProductID, core.VariantInput{
		Options:         req.Options,
		Unit:            req.Unit,
		InitialStock:    stock,
		PreorderAllowed: preorder,
		Prices:          req.Prices,
	})
}

func (s *appService) GetVariant(ctx context.Context, id int) (*core.Variant, error) {
	return s.Catalog.GetVariant(ctx, id)
}

func (s *appService) SetVariantPrice(ctx context.Context, variantID int, currency string, amount int64) (*core.Variant, error) {
	return s.Catalog.SetVariantPrice(ctx, variantID, currency, amount)
}

func (s *appService) DisableVariant(ctx context.Context, variantID int) (*core.Variant, error) {
	return s.Catalog.DisableVariant(ctx, variantID)
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (s *appService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error) {
	input, err := req.toInput()
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" || s.Idempotency == nil {
		order, err := s.Placement.PlaceOrder(ctx, input)
		if err != nil {
			return nil, err
		}
		return &OrderResult{Order: order}, nil
	}

	fingerprint, err := req.fingerprint()
	if err != nil {
		return nil, err
	}
	orderID, replay, err := s.Idempotency.Reserve(ctx, key, fingerprint)
	if err != nil {
		return nil, err
	}
	if replay {
		order, err := s.Orders.GetOrder(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("failed to load order %d for idempotency key: %w", orderID, err)
		}
		return &OrderResult{Order: order, Replayed: true}, nil
	}

	order, err := s.Placement.PlaceOrder(ctx, input)
	if err != nil {
		if rerr := s.Idempotency.Release(context.WithoutCancel(ctx), key); rerr != nil {
			s.Logger.WarnContext(ctx, "failed to release idempotency key", "key", key, "error", rerr)
		}
		return nil, err
	}
	if err := s.Idempotency.Complete(context.WithoutCancel(ctx), key, fingerprint, order.ID); err != nil {
		// The key stays reserved until its TTL expires.
		s.Logger.WarnContext(ctx, "failed to record idempotency key", "key", key, "order_id", order.ID, "error", err)
	}
	return &OrderResult{Order: order}, nil
}

// fingerprint hashes the request without its key, so reusing a key for a different
// order is detected.
func (r PlaceOrderRequest) fingerprint() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode order request: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func (r PlaceOrderRequest) toInput() (core.PlaceOrderInput, error) {
	input := core.PlaceOrderInput{
		CustomerID:  r.CustomerID,
		Currency:    r.Currency,
		PaymentType: core.PaymentType(strings.ToUpper(strings.TrimSpace(r.PaymentType))),
		DeliveryFee: r.DeliveryFee,
		Notes:       strings.TrimSpace(r.Notes),
		Items:       make([]core.OrderLineInput, 0, len(r.Items)),
	}
	for i, it := range r.Items {
		q, err := decimal.NewFromString(strings.TrimSpace(it.Quantity))
		if err != nil {
			return input, core.Invalid(fmt.Sprintf("items[%d].quantity", i), "invalid decimal %q", it.Quantity)
		}
		input.Items = append(input.Items, core.OrderLineInput{VariantID: it.VariantID, Quantity: q})
	}
	return input, nil
}

func (s *appService) GetOrder(ctx context.Context, ref string) (*OrderResult, error) {
	order, err := s.Orders.GetOrderByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) ListOrders(ctx context.Context, req ListOrdersRequest) (*OrderListResult, error) {
	orders, err := s.Orders.ListOrders(ctx, core.OrderFilter{
		CustomerID:    req.CustomerID,
		PaymentStatus: core.PaymentStatus(strings.ToUpper(req.PaymentStatus)),
		PackingStatus: core.PackingStatus(strings.ToUpper(req.PackingStatus)),
		Limit:         req.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

func (s *appService) UpdateOrder(ctx context.Context, req UpdateOrderRequest) (*OrderResult, error) {
	upd := core.OrderUpdate{Notes: req.Notes, DeliveryFee: req.DeliveryFee}
	if req.PaymentStatus != nil {
		ps := core.PaymentStatus(strings.ToUpper(strings.TrimSpace(*req.PaymentStatus)))
		upd.PaymentStatus = &ps
	}
	if req.PackingStatus != nil {
		ps := core.PackingStatus(strings.ToUpper(strings.TrimSpace(*req.PackingStatus)))
		upd.PackingStatus = &ps
	}
	order, err := s.Orders.UpdateStatus(ctx, req.OrderID, upd)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

// ── Procurement ──────────────────────────────────────────────────────────────

func (s *appService) ListProcurements(ctx context.Context, status string) (*ProcurementListResult, error) {
	procs, err := s.Procurements.List(ctx, core.ProcurementFilter{
		Status: core.ProcurementStatus(strings.ToUpper(strings.TrimSpace(status))),
	})
	if err != nil {
		return nil, err
	}
	return &ProcurementListResult{Procurements: procs}, nil
}

func (s *appService) GetProcurement(ctx context.Context, id int) (*core.Procurement, error) {
	return s.Procurements.Get(ctx, id)
}

func (s *appService) UpdateProcurement(ctx context.Context, req UpdateProcurementRequest) (*core.Procurement, error) {
	status := core.ProcurementStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	p, err := s.Procurements.Transition(ctx, req.ProcurementID, status, req.Notes)
	if err != nil {
		return nil, err
	}
	s.Logger.InfoContext(ctx, "procurement updated", "procurement_id", p.ID, "status", p.Status, "variant_id", p.VariantID)
	return p, nil
}

// ── Assistant ────────────────────────────────────────────────────────────────

func (s *appService) DraftOrder(ctx context.Context, message string) (*ai.OrderDraft, error) {
	if s.Agent == nil {
		return nil, ErrAIUnavailable
	}

	products, err := s.Catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	var variants []core.Variant
	for _, p := range products {
		full, err := s.Catalog.GetProduct(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, v := range full.Variants {
			if v.IsActive {
				variants = append(variants, v)
			}
		}
	}
	return s.Agent.DraftOrder(ctx, message, variants, s.DefaultCurrency)
}

// ── Users ────────────────────────────────────────────────────────────────────

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	u, err := s.Users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return &UserSession{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{ID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *appService) CreateUser(ctx context.Context, username, password, role string) (*UserResult, error) {
	u, err := s.Users.CreateUser(ctx, username, password, role)
	if err != nil {
		return nil, err
	}
	return &UserResult{ID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *appService) PlacementStats() metrics.Stats {
	return s.Metrics.GetStats()
}

// IsInFlight reports whether err means the idempotency key is held by another request.
func IsInFlight(err error) bool {
	return errors.Is(err, idempotency.ErrInFlight)
}

// IsKeyReused reports whether err means the idempotency key belongs to a different request.
func IsKeyReused(err error) bool {
	return errors.Is(err, idempotency.ErrKeyReused)
}
