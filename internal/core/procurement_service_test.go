package core_test

import (
	"testing"

	"order-desk/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortfallProcurement(t *testing.T, env *testEnv, stock, ordered int64) (*core.Variant, core.Procurement) {
	t.Helper()
	c := env.customer(t)
	v := env.variant(t, stock)
	o, err := env.placement.PlaceOrder(env.ctx, core.PlaceOrderInput{CustomerID: c.ID, Items: []core.OrderLineInput{line(v.ID, ordered)}})
	require.NoError(t, err)
	require.Len(t, o.Procurements, 1)
	return v, o.Procurements[0]
}

func TestProcurement_ArrivalCreditsStockOnce(t *testing.T) {
	env := newTestEnv(t)
	v, p := shortfallProcurement(t, env, 1, 4)

	_, err := env.procurements.Transition(env.ctx, p.ID, core.ProcurementArrived, nil)
	require.NoError(t, err)
	requireDecimal(t, qty(3), env.stock(t, v.ID))

	again, err := env.procurements.Transition(env.ctx, p.ID, core.ProcurementArrived, nil)
	require.NoError(t, err)
	assert.Equal(t, core.ProcurementArrived, again.Status)
	requireDecimal(t, qty(3), env.stock(t, v.ID))
}

func TestProcurement_ForwardOnly(t *testing.T) {
	env := newTestEnv(t)
	v, p := shortfallProcurement(t, env, 0, 2)

	ordered, err := env.procurements.Transition(env.ctx, p.ID, core.ProcurementOrdered, nil)
	require.NoError(t, err)
	assert.Equal(t, core.ProcurementOrdered, ordered.Status)
	require.NotNil(t, ordered.OrderedAt)
	assert.Nil(t, ordered.ArrivedAt)
	requireDecimal(t, qty(0), env.stock(t, v.ID))

	_, err = env.procurements.Transition(env.ctx, p.ID, core.ProcurementToBuy, nil)
	require.ErrorIs(t, err, core.ErrInvalidTransition)

	_, err = env.procurements.Transition(env.ctx, p.ID, core.ProcurementArrived, nil)
	require.NoError(t, err)

	_, err = env.procurements.Transition(env.ctx, p.ID, core.ProcurementOrdered, nil)
	require.ErrorIs(t, err, core.ErrInvalidTransition)
	requireDecimal(t, qty(2), env.stock(t, v.ID))
}

func TestProcurement_SkipToArrived(t *testing.T) {
	env := newTestEnv(t)
	v, p := shortfallProcurement(t, env, 0, 2)

	got, err := env.procurements.Transition(env.ctx, p.ID, core.ProcurementArrived, nil)
	require.NoError(t, err)
	assert.NotNil(t, got.OrderedAt)
	assert.NotNil(t, got.ArrivedAt)
	requireDecimal(t, qty(2), env.stock(t, v.ID))
}

func TestProcurement_NotesOnSameStatus(t *testing.T) {
	env := newTestEnv(t)
	_, p := shortfallProcurement(t, env, 0, 2)

	notes := "supplier: Toko Jaya"
	got, err := env.procurements.Transition(env.ctx, p.ID, core.ProcurementToBuy, &notes)
	require.NoError(t, err)
	assert.Equal(t, core.ProcurementToBuy, got.Status)
	assert.Equal(t, notes, got.Notes)
	require.NotNil(t, got.Variant)
	assert.Equal(t, "Kaos Polos", got.Variant.ProductName)
}

func TestProcurement_Errors(t *testing.T) {
	env := newTestEnv(t)
	_, p := shortfallProcurement(t, env, 0, 2)

	_, err := env.procurements.Transition(env.ctx, p.ID, "LOST", nil)
	assert.True(t, core.IsValidation(err))

	_, err = env.procurements.Transition(env.ctx, 9999, core.ProcurementOrdered, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = env.procurements.List(env.ctx, core.ProcurementFilter{Status: "LOST"})
	assert.True(t, core.IsValidation(err))
}

func TestProcurement_ListByStatus(t *testing.T) {
	env := newTestEnv(t)
	_, first := shortfallProcurement(t, env, 0, 1)
	_, _ = shortfallProcurement(t, env, 0, 2)

	_, err := env.procurements.Transition(env.ctx, first.ID, core.ProcurementOrdered, nil)
	require.NoError(t, err)

	toBuy, err := env.procurements.List(env.ctx, core.ProcurementFilter{Status: core.ProcurementToBuy})
	require.NoError(t, err)
	require.Len(t, toBuy, 1)
	requireDecimal(t, qty(2), toBuy[0].NeededQty)

	all, err := env.procurements.List(env.ctx, core.ProcurementFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
