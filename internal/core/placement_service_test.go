package core_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"order-desk/internal/core"
	"order-desk/internal/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPlaceOrder_StockThenShortfallThenArrival(t *testing.T) {
	env := newTestEnv(t)
	c := env.customer(t)
	v := env.variant(t, 5)

	a, err := env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{CustomerID: c.ID, Items: []core.OrderLineInput{line(v.ID, 3)}})
	require.NoError(t, err)
	requireDecimal(t, qty(2), env.stock(t, v.ID))
	require.Len(t, a.Items, 1)
	assert.False(t, a.Items[0].IsPreorder)
	assert.Empty(t, a.Procurements)
	assert.Equal(t, "TK-000001", a.OrderNumber)

	b, err := env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{CustomerID: c.ID, Items: []core.OrderLineInput{line(v.ID, 5)}})
	require.NoError(t, err)
	requireDecimal(t, qty(0), env.stock(t, v.ID))
	require.Len(t, b.Items, 1)
	assert.True(t, b.Items[0].IsPreorder)
	require.Len(t, b.Procurements, 1)
	requireDecimal(t, qty(3), b.Procurements[0].NeededQty)
	assert.Equal(t, core.ProcurementToBuy, b.Procurements[0].Status)
	assert.Equal(t, "TK-000002", b.OrderNumber)

	arrived, err := env.procurements.Transition(env.ctx, b.Procurements[0].ID, core.ProcurementArrived, nil)
	require.NoError(t, err)
	assert.Equal(t, core.ProcurementArrived, arrived.Status)
	assert.NotNil(t, arrived.ArrivedAt)
	assert.NotNil(t, arrived.OrderedAt)
	requireDecimal(t, qty(3), env.stock(t, v.ID))
}

func TestPlaceOrder_PricesAndTotals(t *testing.T) {
	env := newTestEnv(t)
	c := env.customer(t)
	v := env.variant(t, 10)

	o, err := env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{
		CustomerID:  c.ID,
		DeliveryFee: 9000,
		Notes:       "kirim sore",
		Items:       []core.OrderLineInput{line(v.ID, 2)},
	})
	require.NoError(t, err)

	assert.Equal(t, "IDR", o.Currency)
	assert.Equal(t, core.PaymentCash, o.PaymentType)
	assert.Equal(t, core.PaymentNotPaid, o.PaymentStatus)
	assert.Equal(t, core.PackingNotReady, o.PackingStatus)
	assert.Equal(t, int64(15000), o.Items[0].UnitPrice)
	assert.Equal(t, int64(30000), o.ItemsTotal())
	assert.Equal(t, int64(39000), o.GrandTotal())
	require.NotNil(t, o.Customer)
	assert.Equal(t, c.Name, o.Customer.Name)

	// Later price changes do not touch the snapshot.
	_, err = env.catalog.SetVariantPrice(env.ctx, v.ID, "idr", 20000)
	require.NoError(t, err)
	again, err := env.orders.GetOrder(env.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), again.Items[0].UnitPrice)
}

func TestPlaceOrder_ShortfallFromNothing(t *testing.T) {
	env := newTestEnv(t)
	c := env.customer(t)
	v := env.variant(t, 0)

	o, err := env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{CustomerID: c.ID, Items: []core.OrderLineInput{line(v.ID, 4)}})
	require.NoError(t, err)
	assert.True(t, o.Items[0].IsPreorder)
	require.Len(t, o.Procurements, 1)
	requireDecimal(t, qty(4), o.Procurements[0].NeededQty)
	requireDecimal(t, qty(0), env.stock(t, v.ID))
}

func TestPlaceOrder_DuplicateVariantLines(t *testing.T) {
	env := newTestEnv(t)
	c := env.customer(t)
	v := env.variant(t, 5)

	o, err := env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{
		CustomerID: c.ID,
		Items:      []core.OrderLineInput{line(v.ID, 3), line(v.ID, 3)},
	})
	require.NoError(t, err)
	require.Len(t, o.Items, 2)

	assert.Equal(t, 1, o.Items[0].LineNumber)
	assert.False(t, o.Items[0].IsPreorder)
	assert.Equal(t, 2, o.Items[1].LineNumber)
	assert.True(t, o.Items[1].IsPreorder)
	require.Len(t, o.Procurements, 1)
	requireDecimal(t, qty(1), o.Procurements[0].NeededQty)
	requireDecimal(t, qty(0), env.stock(t, v.ID))
}

func TestPlaceOrder_MissingVariantRollsBackEverything(t *testing.T) {
	env := newTestEnv(t)
	c := env.customer(t)
	v := env.variant(t, 5)

	_, err := env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{
		CustomerID: c.ID,
		Items:      []core.OrderLineInput{line(v.ID, 2), line(9999, 1)},
	})
	require.Error(t, err)
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "items[1].variant_id", verr.Field)

	requireDecimal(t, qty(5), env.stock(t, v.ID))
	orders, err := env.orders.ListOrders(env.ctx, core.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)

	// The failed attempt did not consume an order number.
	o, err := env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{CustomerID: c.ID, Items: []core.OrderLineInput{line(v.ID, 1)}})
	require.NoError(t, err)
	assert.Equal(t, "TK-000001", o.OrderNumber)
}

func TestPlaceOrder_RejectsUnorderableVariants(t *testing.T) {
	env := newTestEnv(t)
	c := env.customer(t)

	disabled := env.variant(t, 5)
	_, err := env.catalog.DisableVariant(env.ctx, disabled.ID)
	require.NoError(t, err)

	_, err = env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{CustomerID: c.ID, Items: []core.OrderLineInput{line(disabled.ID, 1)}})
	assert.True(t, core.IsValidation(err), "disabled variant: %v", err)
	requireDecimal(t, qty(5), env.stock(t, disabled.ID))

	priced := env.variant(t, 5)
	_, err = env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{
		CustomerID: c.ID,
		Currency:   "usd",
		Items:      []core.OrderLineInput{line(priced.ID, 1)},
	})
	assert.True(t, core.IsValidation(err), "missing price: %v", err)
}

func TestPlaceOrder_InputValidation(t *testing.T) {
	env := newTestEnv(t)
	c := env.customer(t)
	v := env.variant(t, 5)

	tests := []struct {
		name  string
		input core.PlaceOrderInput
		field string
	}{
		{"no customer", core.PlaceOrderInput{Items: []core.OrderLineInput{line(v.ID, 1)}}, "customer_id"},
		{"unknown customer", core.PlaceOrderInput{CustomerID: 404, Items: []core.OrderLineInput{line(v.ID, 1)}}, "customer_id"},
		{"no items", core.PlaceOrderInput{CustomerID: c.ID}, "items"},
		{"zero quantity", core.PlaceOrderInput{CustomerID: c.ID, Items: []core.OrderLineInput{line(v.ID, 0)}}, "items[0].quantity"},
		{"negative quantity", core.PlaceOrderInput{CustomerID: c.ID, Items: []core.OrderLineInput{line(v.ID, -2)}}, "items[0].quantity"},
		{"negative fee", core.PlaceOrderInput{CustomerID: c.ID, DeliveryFee: -1, Items: []core.OrderLineInput{line(v.ID, 1)}}, "delivery_fee"},
		{"bad payment type", core.PlaceOrderInput{CustomerID: c.ID, PaymentType: "CHEQUE", Items: []core.OrderLineInput{line(v.ID, 1)}}, "payment_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.placement.PlaceOrder(env.ctx, tt.input)
			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	requireDecimal(t, qty(5), env.stock(t, v.ID))
}

func TestPlaceOrder_QuantityPrecision(t *testing.T) {
	env := newTestEnv(t)
	c := env.customer(t)
	v := env.variant(t, 1)

	for _, raw := range []string{"0.00001", "1.00004", "10000000000", "12345678901.5"} {
		t.Run(raw, func(t *testing.T) {
			_, err := env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{
				CustomerID: c.ID,
				Items:      []core.OrderLineInput{{VariantID: v.ID, Quantity: decimal.RequireFromString(raw)}},
			})
			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "items[0].quantity", verr.Field)
		})
	}
	requireDecimal(t, qty(1), env.stock(t, v.ID))

	// Four places and trailing zeros beyond them fit the column exactly.
	for _, raw := range []string{"0.0001", "0.25000", "9999999999.9999"} {
		o, err := env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{
			CustomerID: c.ID,
			Items:      []core.OrderLineInput{{VariantID: v.ID, Quantity: decimal.RequireFromString(raw)}},
		})
		require.NoError(t, err, raw)
		requireDecimal(t, decimal.RequireFromString(raw), o.Items[0].Quantity)
	}
}

func TestPlaceOrder_ConcurrentOrdersGetDistinctNumbers(t *testing.T) {
	env := newTestEnv(t)
	c := env.customer(t)
	v := env.variant(t, 10)

	const n = 20
	var wg sync.WaitGroup
	numbers := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, err := env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{CustomerID: c.ID, Items: []core.OrderLineInput{line(v.ID, 1)}})
			errs[i] = err
			if err == nil {
				numbers[i] = o.OrderNumber
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[numbers[i]], "duplicate order number %s", numbers[i])
		seen[numbers[i]] = true
	}
	requireDecimal(t, qty(0), env.stock(t, v.ID))

	procs, err := env.procurements.List(env.ctx, core.ProcurementFilter{VariantID: v.ID})
	require.NoError(t, err)
	require.Len(t, procs, n-10)
}

// flakyStore reports a conflict for the first `failures` units of work.
type flakyStore struct {
	core.Store
	failures int32
	calls    atomic.Int32
}

func (s *flakyStore) InTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	if s.calls.Add(1) <= s.failures {
		return core.ErrConflict
	}
	return s.Store.InTx(ctx, fn)
}

type countingRecorder struct {
	placed, retried, failed atomic.Int32
}

func (r *countingRecorder) OrderPlaced(int, int, int) { r.placed.Add(1) }
func (r *countingRecorder) PlacementRetried()         { r.retried.Add(1) }
func (r *countingRecorder) PlacementFailed(error)     { r.failed.Add(1) }

func TestPlaceOrder_RetriesConflicts(t *testing.T) {
	base := newTestEnv(t)
	c := base.customer(t)
	v := base.variant(t, 5)

	flaky := &flakyStore{Store: base.store, failures: 2}
	rec := &countingRecorder{}
	env := newTestEnvWithStore(t, flaky, core.PlacementOptions{BaseBackoff: time.Millisecond, Recorder: rec})

	o, err := env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{CustomerID: c.ID, Items: []core.OrderLineInput{line(v.ID, 1)}})
	require.NoError(t, err)
	assert.NotZero(t, o.ID)
	assert.Equal(t, int32(3), flaky.calls.Load())
	assert.Equal(t, int32(2), rec.retried.Load())
	assert.Equal(t, int32(1), rec.placed.Load())
}

func TestPlaceOrder_GivesUpAfterMaxAttempts(t *testing.T) {
	base := newTestEnv(t)
	c := base.customer(t)
	v := base.variant(t, 5)

	flaky := &flakyStore{Store: base.store, failures: 100}
	rec := &countingRecorder{}
	env := newTestEnvWithStore(t, flaky, core.PlacementOptions{MaxAttempts: 3, BaseBackoff: time.Millisecond, Recorder: rec})

	_, err := env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{CustomerID: c.ID, Items: []core.OrderLineInput{line(v.ID, 1)}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConflict))
	assert.Equal(t, int32(3), flaky.calls.Load())
	assert.Equal(t, int32(1), rec.failed.Load())
	requireDecimal(t, qty(5), base.stock(t, v.ID))
}

func TestPlaceOrder_StockNeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store := memory.New()
		catalog := core.NewCatalogService(store)
		orders := core.NewOrderService(store, "TK")
		procurements := core.NewProcurementService(store, catalog)
		placement := core.NewPlacementService(store, catalog, orders, procurements, core.PlacementOptions{})
		ctx := context.Background()

		c, err := catalog.CreateCustomer(ctx, core.CustomerInput{Name: "Budi"})
		if err != nil {
			rt.Fatal(err)
		}
		p, err := catalog.CreateProduct(ctx, core.ProductInput{Name: "Sandal"})
		if err != nil {
			rt.Fatal(err)
		}
		initial := rapid.Int64Range(0, 20).Draw(rt, "initial")
		v, err := catalog.CreateVariant(ctx, p.ID, core.VariantInput{InitialStock: qty(initial), Prices: map[string]int64{"IDR": 1000}})
		if err != nil {
			rt.Fatal(err)
		}

		requests := rapid.SliceOfN(rapid.Int64Range(1, 8), 1, 10).Draw(rt, "requests")
		var requested, needed int64
		for _, n := range requests {
			o, err := placement.PlaceOrder(ctx, core.PlaceOrderInput{CustomerID: c.ID, Items: []core.OrderLineInput{line(v.ID, n)}})
			if err != nil {
				rt.Fatal(err)
			}
			requested += n
			for _, pr := range o.Procurements {
				needed += pr.NeededQty.IntPart()
			}
			cur, err := catalog.GetVariant(ctx, v.ID)
			if err != nil {
				rt.Fatal(err)
			}
			if cur.StockOnHand.IsNegative() {
				rt.Fatalf("stock went negative: %s", cur.StockOnHand)
			}
		}

		// Everything requested came either from the initial stock or from a procurement.
		cur, err := catalog.GetVariant(ctx, v.ID)
		if err != nil {
			rt.Fatal(err)
		}
		if got := initial - cur.StockOnHand.IntPart() + needed; got != requested {
			rt.Fatalf("consumed %d + procured %d != requested %d", initial-cur.StockOnHand.IntPart(), needed, requested)
		}
	})
}
