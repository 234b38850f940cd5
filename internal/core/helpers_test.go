package core_test

import (
	"context"
	"testing"

	"order-desk/internal/core"
	"order-desk/internal/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEnv struct {
	store        core.Store
	catalog      core.CatalogService
	orders       core.OrderService
	procurements core.ProcurementService
	placement    core.PlacementService
	ctx          context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, memory.New(), core.PlacementOptions{})
}

func newTestEnvWithStore(t *testing.T, store core.Store, opts core.PlacementOptions) *testEnv {
	t.Helper()
	catalog := core.NewCatalogService(store)
	orders := core.NewOrderService(store, "TK")
	procurements := core.NewProcurementService(store, catalog)
	return &testEnv{
		store:        store,
		catalog:      catalog,
		orders:       orders,
		procurements: procurements,
		placement:    core.NewPlacementService(store, catalog, orders, procurements, opts),
		ctx:          context.Background(),
	}
}

func (e *testEnv) customer(t *testing.T) *core.Customer {
	t.Helper()
	c, err := e.catalog.CreateCustomer(e.ctx, core.CustomerInput{Name: "Sari", Phone: "0812"})
	require.NoError(t, err)
	return c
}

// variant creates a product with one variant priced at 15000 IDR and the given stock.
func (e *testEnv) variant(t *testing.T, stock int64) *core.Variant {
	t.Helper()
	p, err := e.catalog.CreateProduct(e.ctx, core.ProductInput{Name: "Kaos Polos", Brand: "Lokal"})
	require.NoError(t, err)
	v, err := e.catalog.CreateVariant(e.ctx, p.ID, core.VariantInput{
		Options:      map[string]string{"size": "M", "color": "Black"},
		InitialStock: decimal.NewFromInt(stock),
		Prices:       map[string]int64{"IDR": 15000},
	})
	require.NoError(t, err)
	return v
}

func (e *testEnv) stock(t *testing.T, variantID int) decimal.Decimal {
	t.Helper()
	v, err := e.catalog.GetVariant(e.ctx, variantID)
	require.NoError(t, err)
	return v.StockOnHand
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func line(variantID int, n int64) core.OrderLineInput {
	return core.OrderLineInput{VariantID: variantID, Quantity: qty(n)}
}

func requireDecimal(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, want.Equal(got), "want %s, got %s", want, got)
}
