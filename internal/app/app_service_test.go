package app_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"order-desk/internal/ai"
	"order-desk/internal/app"
	"order-desk/internal/core"
	"order-desk/internal/idempotency"
	"order-desk/internal/metrics"
	"order-desk/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDrafter struct {
	gotVariants []core.Variant
}

func (f *fakeDrafter) DraftOrder(_ context.Context, message string, variants []core.Variant, currency string) (*ai.OrderDraft, error) {
	f.gotVariants = variants
	return &ai.OrderDraft{Notes: message + " / " + currency, Confidence: 1}, nil
}

func newService(t *testing.T, drafter ai.OrderDrafter) (app.ApplicationService, *idempotency.MemoryStore) {
	t.Helper()
	store := memory.New()
	collector := metrics.New()
	catalog := core.NewCatalogService(store)
	orders := core.NewOrderService(store, "TK")
	procurements := core.NewProcurementService(store, catalog)
	idem := idempotency.NewMemoryStore(time.Hour)
	svc := app.NewAppService(app.Services{
		Catalog:      catalog,
		Orders:       orders,
		Procurements: procurements,
		Placement:    core.NewPlacementService(store, catalog, orders, procurements, core.PlacementOptions{Recorder: collector}),
		Users:        core.NewUserService(store),
		Idempotency:  idem,
		Metrics:      collector,
		Agent:        drafter,
	})
	return svc, idem
}

func seed(t *testing.T, svc app.ApplicationService, stock string) (*core.Customer, *core.Variant) {
	t.Helper()
	ctx := context.Background()
	c, err := svc.CreateCustomer(ctx, app.CreateCustomerRequest{Name: "Ayu", Type: "reseller"})
	require.NoError(t, err)
	p, err := svc.CreateProduct(ctx, app.CreateProductRequest{Name: "Gamis"})
	require.NoError(t, err)
	v, err := svc.CreateVariant(ctx, app.CreateVariantRequest{
		ProductID:    p.ID,
		Options:      map[string]string{"size": "L"},
		InitialStock: stock,
		Prices:       map[string]int64{"IDR": 125000},
	})
	require.NoError(t, err)
	return c, v
}

func TestPlaceOrder_ParsesRequest(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	c, v := seed(t, svc, "4")
	assert.Equal(t, core.CustomerReseller, c.Type)
	assert.True(t, v.PreorderAllowed)

	res, err := svc.PlaceOrder(ctx, app.PlaceOrderRequest{
		CustomerID:  c.ID,
		PaymentType: "bank_transfer",
		Items:       []app.OrderItemRequest{{VariantID: v.ID, Quantity: "1.5"}},
	})
	require.NoError(t, err)
	assert.Equal(t, core.PaymentBankTransfer, res.Order.PaymentType)
	assert.Equal(t, int64(187500), res.Order.ItemsTotal())

	_, err = svc.PlaceOrder(ctx, app.PlaceOrderRequest{
		CustomerID: c.ID,
		Items:      []app.OrderItemRequest{{VariantID: v.ID, Quantity: "lots"}},
	})
	assert.True(t, core.IsValidation(err))

	stats := svc.PlacementStats()
	assert.Equal(t, int64(1), stats.OrdersPlaced)
}

func TestPlaceOrder_IdempotencyKey(t *testing.T) {
	svc, idem := newService(t, nil)
	ctx := context.Background()
	c, v := seed(t, svc, "5")

	req := app.PlaceOrderRequest{
		CustomerID:     c.ID,
		Items:          []app.OrderItemRequest{{VariantID: v.ID, Quantity: "2"}},
		IdempotencyKey: "checkout-1",
	}
	first, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	got, err := svc.GetVariant(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "3", got.StockOnHand.String())

	// A key held by a running request is rejected.
	held := req
	held.IdempotencyKey = "checkout-2"
	_, _, err = idem.Reserve(ctx, "checkout-2", requestHash(t, held))
	require.NoError(t, err)
	_, err = svc.PlaceOrder(ctx, held)
	assert.True(t, app.IsInFlight(err))
}

func requestHash(t *testing.T, req app.PlaceOrderRequest) string {
	t.Helper()
	b, err := json.Marshal(req)
	require.NoError(t, err)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func TestPlaceOrder_IdempotencyKeyReusedWithDifferentBody(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	c, v := seed(t, svc, "5")

	req := app.PlaceOrderRequest{
		CustomerID:     c.ID,
		Items:          []app.OrderItemRequest{{VariantID: v.ID, Quantity: "1"}},
		IdempotencyKey: "checkout-9",
	}
	first, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)

	changed := req
	changed.Items = []app.OrderItemRequest{{VariantID: v.ID, Quantity: "3"}}
	_, err = svc.PlaceOrder(ctx, changed)
	assert.True(t, app.IsKeyReused(err))

	got, err := svc.GetVariant(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "4", got.StockOnHand.String(), "the second body is never placed")

	again, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Order.ID, again.Order.ID)
}

func TestPlaceOrder_FailedRequestReleasesKey(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	c, v := seed(t, svc, "5")

	bad := app.PlaceOrderRequest{
		CustomerID:     c.ID,
		Items:          []app.OrderItemRequest{{VariantID: v.ID + 100, Quantity: "1"}},
		IdempotencyKey: "retry-me",
	}
	_, err := svc.PlaceOrder(ctx, bad)
	require.True(t, core.IsValidation(err))

	bad.Items[0].VariantID = v.ID
	res, err := svc.PlaceOrder(ctx, bad)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
}

func TestUpdateProcurement_Restocks(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	c, v := seed(t, svc, "0")

	res, err := svc.PlaceOrder(ctx, app.PlaceOrderRequest{CustomerID: c.ID, Items: []app.OrderItemRequest{{VariantID: v.ID, Quantity: "2"}}})
	require.NoError(t, err)
	require.Len(t, res.Order.Procurements, 1)

	list, err := svc.ListProcurements(ctx, "to_buy")
	require.NoError(t, err)
	require.Len(t, list.Procurements, 1)

	p, err := svc.UpdateProcurement(ctx, app.UpdateProcurementRequest{ProcurementID: list.Procurements[0].ID, Status: "arrived"})
	require.NoError(t, err)
	assert.Equal(t, core.ProcurementArrived, p.Status)

	got, err := svc.GetVariant(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "2", got.StockOnHand.String())
}

func TestUpdateOrder(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	c, v := seed(t, svc, "3")
	res, err := svc.PlaceOrder(ctx, app.PlaceOrderRequest{CustomerID: c.ID, Items: []app.OrderItemRequest{{VariantID: v.ID, Quantity: "1"}}})
	require.NoError(t, err)

	packed := "packed"
	updated, err := svc.UpdateOrder(ctx, app.UpdateOrderRequest{OrderID: res.Order.ID, PackingStatus: &packed})
	require.NoError(t, err)
	assert.Equal(t, core.PackingPacked, updated.Order.PackingStatus)

	byRef, err := svc.GetOrder(ctx, res.Order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, core.PackingPacked, byRef.Order.PackingStatus)

	list, err := svc.ListOrders(ctx, app.ListOrdersRequest{PackingStatus: "packed"})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 1)
}

func TestDraftOrder(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.DraftOrder(context.Background(), "2 gamis L")
	assert.ErrorIs(t, err, app.ErrAIUnavailable)

	drafter := &fakeDrafter{}
	svc, _ = newService(t, drafter)
	_, v := seed(t, svc, "1")
	disabled, err := svc.CreateVariant(context.Background(), app.CreateVariantRequest{ProductID: v.ProductID, Options: map[string]string{"size": "S"}})
	require.NoError(t, err)
	_, err = svc.DisableVariant(context.Background(), disabled.ID)
	require.NoError(t, err)

	draft, err := svc.DraftOrder(context.Background(), "2 gamis L")
	require.NoError(t, err)
	assert.Equal(t, "2 gamis L / IDR", draft.Notes)
	require.Len(t, drafter.gotVariants, 1)
	assert.Equal(t, v.ID, drafter.gotVariants[0].ID)
}

func TestUsers(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, "admin", "correct-horse", "admin")
	require.NoError(t, err)

	session, err := svc.AuthenticateUser(ctx, "admin", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, session.UserID)
	assert.Equal(t, "admin", session.Role)

	_, err = svc.AuthenticateUser(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
