package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// StockPolicy decides what a decrement below zero does.
type StockPolicy int

const (
	// RejectNegative fails the adjustment with ErrInsufficientStock.
	RejectNegative StockPolicy = iota
	// ClampToZero stores zero instead of a negative quantity.
	ClampToZero
)

// StockAdjustment qualifies an AdjustStock call. When Expected is set, the adjustment only
// applies if the locked stock still equals it; otherwise ErrConflict is returned.
type StockAdjustment struct {
	Policy   StockPolicy
	Expected *decimal.Decimal
}

// CatalogService manages customers, products, variants, prices and on-hand stock.
type CatalogService interface {
	// Customers
	CreateCustomer(ctx context.Context, input CustomerInput) (*Customer, error)
	GetCustomer(ctx context.Context, id int) (*Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)

	// Products and variants
	CreateProduct(ctx context.Context, input ProductInput) (*Product, error)
	// GetProduct returns the product with all of its variants.
	GetProduct(ctx context.Context, id int) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	CreateVariant(ctx context.Context, productID int, input VariantInput) (*Variant, error)
	GetVariant(ctx context.Context, id int) (*Variant, error)
	SetVariantPrice(ctx context.Context, variantID int, currency string, amount int64) (*Variant, error)
	// DisableVariant soft-deletes a variant; it stays readable for historic order items
	// but can no longer be ordered.
	DisableVariant(ctx context.Context, variantID int) (*Variant, error)

	// Stock. AdjustStock runs in its own transaction; AdjustStockTx joins the caller's.
	// Stored stock is never negative.
	AdjustStock(ctx context.Context, variantID int, delta decimal.Decimal, adj StockAdjustment) (*Variant, error)
	AdjustStockTx(ctx context.Context, tx Tx, variantID int, delta decimal.Decimal, adj StockAdjustment) (*Variant, error)
}

type catalogService struct {
	store Store
}

func NewCatalogService(store Store) CatalogService {
	return &catalogService{store: store}
}

// ── Customers ────────────────────────────────────────────────────────────────

func (s *catalogService) CreateCustomer(ctx context.Context, input CustomerInput) (*Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, Invalid("name", "customer name is required")
	}
	if input.Type == "" {
		input.Type = CustomerPersonal
	}
	if !input.Type.Valid() {
		return nil, Invalid("type", "unknown customer type %q", input.Type)
	}

	c := &Customer{
		Name:       name,
		Phone:      strings.TrimSpace(input.Phone),
		Address:    strings.TrimSpace(input.Address),
		City:       strings.TrimSpace(input.City),
		PostalCode: strings.TrimSpace(input.PostalCode),
		Type:       input.Type,
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertCustomer(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return c, nil
}

func (s *catalogService) GetCustomer(ctx context.Context, id int) (*Customer, error) {
	var c *Customer
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		c, err = tx.GetCustomer(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("customer %d: %w", id, err)
	}
	return c, nil
}

func (s *catalogService) ListCustomers(ctx context.Context) ([]Customer, error) {
	var customers []Customer
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		customers, err = tx.ListCustomers(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

// ── Products and variants ────────────────────────────────────────────────────

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, Invalid("name", "product name is required")
	}
	p := &Product{
		Name:        name,
		Brand:       strings.TrimSpace(input.Brand),
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertProduct(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int) (*Product, error) {
	var p *Product
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if p, err = tx.GetProduct(ctx, id); err != nil {
			return err
		}
		p.Variants, err = tx.ListVariants(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", id, err)
	}
	return p, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		products, err = tx.ListProducts(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *catalogService) CreateVariant(ctx context.Context, productID int, input VariantInput) (*Variant, error) {
	if input.InitialStock.IsNegative() {
		return nil, Invalid("initial_stock", "must not be negative, got %s", input.InitialStock)
	}
	if err := checkQuantity("initial_stock", input.InitialStock); err != nil {
		return nil, err
	}
	prices := make(map[string]int64, len(input.Prices))
	for cur, amount := range input.Prices {
		code := normalizeCurrency(cur)
		if code == "" {
			return nil, Invalid("prices", "currency code is required")
		}
		if amount < 0 {
			return nil, Invalid("prices", "price for %s must not be negative", code)
		}
		prices[code] = amount
	}
	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = "pcs"
	}

	v := &Variant{
		ProductID:       productID,
		Options:         input.Options,
		OptionSignature: OptionSignature(input.Options),
		Unit:            unit,
		StockOnHand:     input.InitialStock,
		PreorderAllowed: input.PreorderAllowed,
		IsActive:        true,
		Prices:          prices,
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		v.ProductName = p.Name
		return tx.InsertVariant(ctx, v)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create variant for product %d: %w", productID, err)
	}
	return v, nil
}

func (s *catalogService) GetVariant(ctx context.Context, id int) (*Variant, error) {
	var v *Variant
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		v, err = tx.GetVariant(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("variant %d: %w", id, err)
	}
	return v, nil
}

func (s *catalogService) SetVariantPrice(ctx context.Context, variantID int, currency string, amount int64) (*Variant, error) {
	code := normalizeCurrency(currency)
	if code == "" {
		return nil, Invalid("currency", "currency code is required")
	}
	if amount < 0 {
		return nil, Invalid("amount", "price must not be negative")
	}

	var v *Variant
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.LockVariant(ctx, variantID); err != nil {
			return err
		}
		if err := tx.UpsertVariantPrice(ctx, variantID, code, amount); err != nil {
			return err
		}
		var err error
		v, err = tx.GetVariant(ctx, variantID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set price of variant %d: %w", variantID, err)
	}
	return v, nil
}

func (s *catalogService) DisableVariant(ctx context.Context, variantID int) (*Variant, error) {
	var v *Variant
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.LockVariant(ctx, variantID); err != nil {
			return err
		}
		if err := tx.SetVariantActive(ctx, variantID, false); err != nil {
			return err
		}
		var err error
		v, err = tx.GetVariant(ctx, variantID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to disable variant %d: %w", variantID, err)
	}
	return v, nil
}

// ── Stock ────────────────────────────────────────────────────────────────────

func (s *catalogService) AdjustStock(ctx context.Context, variantID int, delta decimal.Decimal, adj StockAdjustment) (*Variant, error) {
	var v *Variant
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		v, err = s.AdjustStockTx(ctx, tx, variantID, delta, adj)
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// AdjustStockTx locks the variant row, applies delta and writes the result back within
// the caller's transaction.
func (s *catalogService) AdjustStockTx(ctx context.Context, tx Tx, variantID int, delta decimal.Decimal, adj StockAdjustment) (*Variant, error) {
	if err := checkQuantity("delta", delta); err != nil {
		return nil, err
	}
	v, err := tx.LockVariant(ctx, variantID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock variant %d: %w", variantID, err)
	}

	if adj.Expected != nil && !v.StockOnHand.Equal(*adj.Expected) {
		return nil, fmt.Errorf("variant %d stock is %s, expected %s: %w",
			variantID, v.StockOnHand, adj.Expected, ErrConflict)
	}

	next := v.StockOnHand.Add(delta)
	if next.IsNegative() {
		if adj.Policy != ClampToZero {
			return nil, fmt.Errorf("variant %d has %s on hand, cannot apply %s: %w",
				variantID, v.StockOnHand, delta, ErrInsufficientStock)
		}
		next = decimal.Zero
	}
	if err := checkQuantity("stock_on_hand", next); err != nil {
		return nil, err
	}

	if err := tx.UpdateVariantStock(ctx, variantID, next); err != nil {
		return nil, fmt.Errorf("failed to update stock of variant %d: %w", variantID, err)
	}
	v.StockOnHand = next
	return v, nil
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
