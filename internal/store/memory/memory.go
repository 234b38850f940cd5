// Package memory is an in-process core.Store. Units of work run one at a time against a
// private copy of the data, which replaces the shared state only when fn succeeds.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"order-desk/internal/core"

	"github.com/shopspring/decimal"
)

type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &tx{st: work, now: s.now}); err != nil {
		return err
	}
	s.state = work
	return nil
}

type state struct {
	customers    map[int]core.Customer
	products     map[int]core.Product
	variants     map[int]core.Variant
	orders       map[int]core.Order
	items        map[int]core.OrderItem
	procurements map[int]core.Procurement
	users        map[int]core.User
	sequences    map[string]int64
	lastID       map[string]int
}

func newState() *state {
	return &state{
		customers:    map[int]core.Customer{},
		products:     map[int]core.Product{},
		variants:     map[int]core.Variant{},
		orders:       map[int]core.Order{},
		items:        map[int]core.OrderItem{},
		procurements: map[int]core.Procurement{},
		users:        map[int]core.User{},
		sequences:    map[string]int64{},
		lastID:       map[string]int{},
	}
}

func (st *state) clone() *state {
	c := &state{
		customers:    maps.Clone(st.customers),
		products:     maps.Clone(st.products),
		variants:     make(map[int]core.Variant, len(st.variants)),
		orders:       maps.Clone(st.orders),
		items:        maps.Clone(st.items),
		procurements: maps.Clone(st.procurements),
		users:        maps.Clone(st.users),
		sequences:    maps.Clone(st.sequences),
		lastID:       maps.Clone(st.lastID),
	}
	for id, v := range st.variants {
		c.variants[id] = copyVariant(v)
	}
	return c
}

func (st *state) nextID(table string) int {
	st.lastID[table]++
	return st.lastID[table]
}

func copyVariant(v core.Variant) core.Variant {
	v.Options = maps.Clone(v.Options)
	v.Prices = maps.Clone(v.Prices)
	return v
}

// joined mirrors what a SQL join on variants returns: no price rows.
func joined(v core.Variant) *core.Variant {
	out := copyVariant(v)
	out.Prices = nil
	return &out
}

type tx struct {
	st  *state
	now func() time.Time
}

var (
	_ core.Store = (*Store)(nil)
	_ core.Tx    = (*tx)(nil)
)

func notFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, core.ErrNotFound)
}

// ── Catalog ──────────────────────────────────────────────────────────────────

func (t *tx) InsertCustomer(_ context.Context, c *core.Customer) error {
	c.ID = t.st.nextID("customers")
	c.CreatedAt = t.now()
	c.UpdatedAt = c.CreatedAt
	t.st.customers[c.ID] = *c
	return nil
}

func (t *tx) GetCustomer(_ context.Context, id int) (*core.Customer, error) {
	c, ok := t.st.customers[id]
	if !ok {
		return nil, notFound("customer", id)
	}
	return &c, nil
}

func (t *tx) ListCustomers(_ context.Context) ([]core.Customer, error) {
	out := make([]core.Customer, 0, len(t.st.customers))
	for _, c := range t.st.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) InsertProduct(_ context.Context, p *core.Product) error {
	p.ID = t.st.nextID("products")
	p.CreatedAt = t.now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	stored.Variants = nil
	t.st.products[p.ID] = stored
	return nil
}

func (t *tx) GetProduct(_ context.Context, id int) (*core.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	return &p, nil
}

func (t *tx) ListProducts(_ context.Context) ([]core.Product, error) {
	out := make([]core.Product, 0, len(t.st.products))
	for _, p := range t.st.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) InsertVariant(_ context.Context, v *core.Variant) error {
	p, ok := t.st.products[v.ProductID]
	if !ok {
		return notFound("product", v.ProductID)
	}
	for _, existing := range t.st.variants {
		if existing.ProductID == v.ProductID && existing.OptionSignature == v.OptionSignature {
			return fmt.Errorf("variant %q of product %d: %w", v.OptionSignature, v.ProductID, core.ErrDuplicate)
		}
	}
	v.ID = t.st.nextID("variants")
	v.ProductName = p.Name
	v.CreatedAt = t.now()
	v.UpdatedAt = v.CreatedAt
	if v.Prices == nil {
		v.Prices = map[string]int64{}
	}
	t.st.variants[v.ID] = copyVariant(*v)
	return nil
}

func (t *tx) GetVariant(_ context.Context, id int) (*core.Variant, error) {
	v, ok := t.st.variants[id]
	if !ok {
		return nil, notFound("variant", id)
	}
	out := copyVariant(v)
	return &out, nil
}

// LockVariant needs no lock of its own: the whole unit of work holds the store mutex.
func (t *tx) LockVariant(ctx context.Context, id int) (*core.Variant, error) {
	return t.GetVariant(ctx, id)
}

func (t *tx) ListVariants(_ context.Context, productID int) ([]core.Variant, error) {
	var out []core.Variant
	for _, v := range t.st.variants {
		if v.ProductID == productID {
			out = append(out, copyVariant(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) UpdateVariantStock(_ context.Context, id int, stock decimal.Decimal) error {
	v, ok := t.st.variants[id]
	if !ok {
		return notFound("variant", id)
	}
	if stock.IsNegative() {
		return fmt.Errorf("variant %d: stock_on_hand must not be negative, got %s", id, stock)
	}
	v.StockOnHand = stock
	v.UpdatedAt = t.now()
	t.st.variants[id] = v
	return nil
}

func (t *tx) SetVariantActive(_ context.Context, id int, active bool) error {
	v, ok := t.st.variants[id]
	if !ok {
		return notFound("variant", id)
	}
	v.IsActive = active
	v.UpdatedAt = t.now()
	t.st.variants[id] = v
	return nil
}

func (t *tx) UpsertVariantPrice(_ context.Context, id int, currency string, amount int64) error {
	v, ok := t.st.variants[id]
	if !ok {
		return notFound("variant", id)
	}
	if v.Prices == nil {
		v.Prices = map[string]int64{}
	}
	v.Prices[currency] = amount
	v.UpdatedAt = t.now()
	t.st.variants[id] = v
	return nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (t *tx) NextOrderSequence(_ context.Context, name string) (int64, error) {
	t.st.sequences[name]++
	return t.st.sequences[name], nil
}

func (t *tx) InsertOrder(_ context.Context, o *core.Order) error {
	if _, ok := t.st.customers[o.CustomerID]; !ok {
		return notFound("customer", o.CustomerID)
	}
	for _, existing := range t.st.orders {
		if existing.OrderNumber == o.OrderNumber {
			return fmt.Errorf("order number %s: %w", o.OrderNumber, core.ErrDuplicate)
		}
	}
	o.ID = t.st.nextID("orders")
	o.CreatedAt = t.now()
	o.UpdatedAt = o.CreatedAt
	t.st.orders[o.ID] = headerOnly(*o)
	return nil
}

func headerOnly(o core.Order) core.Order {
	o.Customer = nil
	o.Items = nil
	o.Procurements = nil
	return o
}

func (t *tx) InsertOrderItem(_ context.Context, it *core.OrderItem) error {
	if _, ok := t.st.orders[it.OrderID]; !ok {
		return notFound("order", it.OrderID)
	}
	if _, ok := t.st.variants[it.VariantID]; !ok {
		return notFound("variant", it.VariantID)
	}
	it.ID = t.st.nextID("order_items")
	it.CreatedAt = t.now()
	stored := *it
	stored.Variant = nil
	t.st.items[it.ID] = stored
	return nil
}

func (t *tx) GetOrder(_ context.Context, id int) (*core.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	return &o, nil
}

func (t *tx) LockOrder(ctx context.Context, id int) (*core.Order, error) {
	return t.GetOrder(ctx, id)
}

func (t *tx) FindOrderIDByNumber(_ context.Context, orderNumber string) (int, error) {
	for id, o := range t.st.orders {
		if o.OrderNumber == orderNumber {
			return id, nil
		}
	}
	return 0, notFound("order", orderNumber)
}

func (t *tx) UpdateOrder(_ context.Context, o *core.Order) error {
	if _, ok := t.st.orders[o.ID]; !ok {
		return notFound("order", o.ID)
	}
	o.UpdatedAt = t.now()
	t.st.orders[o.ID] = headerOnly(*o)
	return nil
}

func (t *tx) ListOrderItems(_ context.Context, orderID int) ([]core.OrderItem, error) {
	var out []core.OrderItem
	for _, it := range t.st.items {
		if it.OrderID != orderID {
			continue
		}
		if v, ok := t.st.variants[it.VariantID]; ok {
			it.Variant = joined(v)
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })
	return out, nil
}

func (t *tx) ListOrders(_ context.Context, filter core.OrderFilter) ([]core.Order, error) {
	var out []core.Order
	for _, o := range t.st.orders {
		if filter.CustomerID != 0 && o.CustomerID != filter.CustomerID {
			continue
		}
		if filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if filter.PackingStatus != "" && o.PackingStatus != filter.PackingStatus {
			continue
		}
		if c, ok := t.st.customers[o.CustomerID]; ok {
			o.Customer = &c
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ── Procurements ─────────────────────────────────────────────────────────────

func (t *tx) InsertProcurement(_ context.Context, p *core.Procurement) error {
	if _, ok := t.st.orders[p.OrderID]; !ok {
		return notFound("order", p.OrderID)
	}
	if _, ok := t.st.variants[p.VariantID]; !ok {
		return notFound("variant", p.VariantID)
	}
	p.ID = t.st.nextID("procurements")
	p.CreatedAt = t.now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	stored.Variant = nil
	t.st.procurements[p.ID] = stored
	return nil
}

func (t *tx) GetProcurement(_ context.Context, id int) (*core.Procurement, error) {
	p, ok := t.st.procurements[id]
	if !ok {
		return nil, notFound("procurement", id)
	}
	if v, ok := t.st.variants[p.VariantID]; ok {
		p.Variant = joined(v)
	}
	return &p, nil
}

func (t *tx) LockProcurement(ctx context.Context, id int) (*core.Procurement, error) {
	return t.GetProcurement(ctx, id)
}

func (t *tx) UpdateProcurement(_ context.Context, p *core.Procurement) error {
	if _, ok := t.st.procurements[p.ID]; !ok {
		return notFound("procurement", p.ID)
	}
	p.UpdatedAt = t.now()
	stored := *p
	stored.Variant = nil
	t.st.procurements[p.ID] = stored
	return nil
}

func (t *tx) ListProcurements(_ context.Context, filter core.ProcurementFilter) ([]core.Procurement, error) {
	var out []core.Procurement
	for _, p := range t.st.procurements {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.OrderID != 0 && p.OrderID != filter.OrderID {
			continue
		}
		if filter.VariantID != 0 && p.VariantID != filter.VariantID {
			continue
		}
		if v, ok := t.st.variants[p.VariantID]; ok {
			p.Variant = joined(v)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ── Users ────────────────────────────────────────────────────────────────────

func (t *tx) InsertUser(_ context.Context, u *core.User) error {
	for _, existing := range t.st.users {
		if existing.Username == u.Username {
			return fmt.Errorf("username %q: %w", u.Username, core.ErrDuplicate)
		}
	}
	u.ID = t.st.nextID("users")
	u.CreatedAt = t.now()
	t.st.users[u.ID] = *u
	return nil
}

func (t *tx) GetUserByUsername(_ context.Context, username string) (*core.User, error) {
	for _, u := range t.st.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, notFound("user", username)
}

func (t *tx) GetUserByID(_ context.Context, id int) (*core.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}
