package postgres

import (
	"context"
	"fmt"
	"strings"

	"order-desk/internal/core"
)

// ── Orders ───────────────────────────────────────────────────────────────────

const orderColumns = `o.id, o.order_number, o.customer_id, o.currency, o.payment_type, o.payment_status,
	o.packing_status, o.delivery_fee, o.notes, o.created_at, o.updated_at`

func orderDest(o *core.Order) []any {
	return []any{&o.ID, &o.OrderNumber, &o.CustomerID, &o.Currency, &o.PaymentType, &o.PaymentStatus,
		&o.PackingStatus, &o.DeliveryFee, &o.Notes, &o.CreatedAt, &o.UpdatedAt}
}

// NextOrderSequence bumps the named counter row. The row lock taken by the upsert is held
// until commit, so concurrent placements receive distinct, gapless numbers.
func (t *tx) NextOrderSequence(ctx context.Context, name string) (int64, error) {
	var last int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO order_sequences (name, last_number)
		VALUES ($1, 1)
		ON CONFLICT (name)
		DO UPDATE SET last_number = order_sequences.last_number + 1
		RETURNING last_number
	`, name).Scan(&last)
	if err != nil {
		return 0, classify(fmt.Errorf("failed to generate order sequence number: %w", err))
	}
	return last, nil
}

func (t *tx) InsertOrder(ctx context.Context, o *core.Order) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, customer_id, currency, payment_type, payment_status,
		                    packing_status, delivery_fee, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, o.OrderNumber, o.CustomerID, o.Currency, o.PaymentType, o.PaymentStatus,
		o.PackingStatus, o.DeliveryFee, o.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return classify(fmt.Errorf("failed to insert order %s: %w", o.OrderNumber, err))
	}
	return nil
}

func (t *tx) InsertOrderItem(ctx context.Context, it *core.OrderItem) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO order_items (order_id, line_number, variant_id, quantity, unit_price, is_preorder)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, it.OrderID, it.LineNumber, it.VariantID, it.Quantity, it.UnitPrice, it.IsPreorder,
	).Scan(&it.ID, &it.CreatedAt)
	if err != nil {
		return classify(fmt.Errorf("failed to insert line %d of order %d: %w", it.LineNumber, it.OrderID, err))
	}
	return nil
}

func (t *tx) GetOrder(ctx context.Context, id int) (*core.Order, error) {
	return t.fetchOrder(ctx, id, "")
}

func (t *tx) LockOrder(ctx context.Context, id int) (*core.Order, error) {
	return t.fetchOrder(ctx, id, " FOR UPDATE")
}

func (t *tx) fetchOrder(ctx context.Context, id int, lock string) (*core.Order, error) {
	var o core.Order
	err := t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`+lock, id).Scan(orderDest(&o)...)
	if err != nil {
		return nil, notFound("order", id, err)
	}
	return &o, nil
}

func (t *tx) FindOrderIDByNumber(ctx context.Context, orderNumber string) (int, error) {
	var id int
	if err := t.tx.QueryRow(ctx, `SELECT id FROM orders WHERE order_number = $1`, orderNumber).Scan(&id); err != nil {
		return 0, notFound("order", orderNumber, err)
	}
	return id, nil
}

func (t *tx) UpdateOrder(ctx context.Context, o *core.Order) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE orders
		SET payment_status = $2, packing_status = $3, delivery_fee = $4, notes = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, o.ID, o.PaymentStatus, o.PackingStatus, o.DeliveryFee, o.Notes).Scan(&o.UpdatedAt)
	if err != nil {
		return notFound("order", o.ID, err)
	}
	return nil
}

func (t *tx) ListOrderItems(ctx context.Context, orderID int) ([]core.OrderItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT i.id, i.order_id, i.line_number, i.variant_id, i.quantity, i.unit_price, i.is_preorder, i.created_at,
		       `+variantColumns+`
		FROM order_items i
		JOIN variants v ON v.id = i.variant_id
		JOIN products p ON p.id = v.product_id
		WHERE i.order_id = $1
		ORDER BY i.line_number
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items of order %d: %w", orderID, err)
	}
	defer rows.Close()

	var out []core.OrderItem
	for rows.Next() {
		var it core.OrderItem
		v := &core.Variant{}
		dest := append([]any{&it.ID, &it.OrderID, &it.LineNumber, &it.VariantID, &it.Quantity,
			&it.UnitPrice, &it.IsPreorder, &it.CreatedAt}, variantDest(v)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		it.Variant = v
		out = append(out, it)
	}
	return out, rows.Err()
}

func (t *tx) ListOrders(ctx context.Context, filter core.OrderFilter) ([]core.Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.CustomerID != 0 {
		args = append(args, filter.CustomerID)
		where = append(where, fmt.Sprintf("o.customer_id = $%d", len(args)))
	}
	if filter.PaymentStatus != "" {
		args = append(args, filter.PaymentStatus)
		where = append(where, fmt.Sprintf("o.payment_status = $%d", len(args)))
	}
	if filter.PackingStatus != "" {
		args = append(args, filter.PackingStatus)
		where = append(where, fmt.Sprintf("o.packing_status = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + `, ` + customerColumns + `
		FROM orders o
		JOIN customers c ON c.id = o.customer_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var out []core.Order
	for rows.Next() {
		var o core.Order
		c := &core.Customer{}
		dest := append(orderDest(&o), &c.ID, &c.Name, &c.Phone, &c.Address, &c.City, &c.PostalCode,
			&c.Type, &c.CreatedAt, &c.UpdatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Customer = c
		out = append(out, o)
	}
	return out, rows.Err()
}

// ── Procurements ─────────────────────────────────────────────────────────────

const procurementColumns = `r.id, r.order_id, r.variant_id, r.needed_qty, r.status, r.notes,
	r.created_at, r.updated_at, r.ordered_at, r.arrived_at`

func procurementDest(r *core.Procurement, v *core.Variant) []any {
	return append([]any{&r.ID, &r.OrderID, &r.VariantID, &r.NeededQty, &r.Status, &r.Notes,
		&r.CreatedAt, &r.UpdatedAt, &r.OrderedAt, &r.ArrivedAt}, variantDest(v)...)
}

const procurementFrom = `
	FROM procurements r
	JOIN variants v ON v.id = r.variant_id
	JOIN products p ON p.id = v.product_id`

func (t *tx) InsertProcurement(ctx context.Context, r *core.Procurement) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO procurements (order_id, variant_id, needed_qty, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, r.OrderID, r.VariantID, r.NeededQty, r.Status, r.Notes).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return classify(fmt.Errorf("failed to insert procurement for variant %d: %w", r.VariantID, err))
	}
	return nil
}

func (t *tx) GetProcurement(ctx context.Context, id int) (*core.Procurement, error) {
	return t.fetchProcurement(ctx, id, "")
}

func (t *tx) LockProcurement(ctx context.Context, id int) (*core.Procurement, error) {
	return t.fetchProcurement(ctx, id, " FOR UPDATE OF r")
}

func (t *tx) fetchProcurement(ctx context.Context, id int, lock string) (*core.Procurement, error) {
	var r core.Procurement
	v := &core.Variant{}
	err := t.tx.QueryRow(ctx, `SELECT `+procurementColumns+`, `+variantColumns+procurementFrom+`
		WHERE r.id = $1`+lock, id).Scan(procurementDest(&r, v)...)
	if err != nil {
		return nil, notFound("procurement", id, err)
	}
	r.Variant = v
	return &r, nil
}

func (t *tx) UpdateProcurement(ctx context.Context, r *core.Procurement) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE procurements
		SET status = $2, notes = $3, ordered_at = $4, arrived_at = $5, updated_at = NOW()
		WHERE id = $1
	`, r.ID, r.Status, r.Notes, r.OrderedAt, r.ArrivedAt)
	if err != nil {
		return classify(fmt.Errorf("failed to update procurement %d: %w", r.ID, err))
	}
	return mustAffect(tag, "procurement", r.ID)
}

func (t *tx) ListProcurements(ctx context.Context, filter core.ProcurementFilter) ([]core.Procurement, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("r.status = $%d", len(args)))
	}
	if filter.OrderID != 0 {
		args = append(args, filter.OrderID)
		where = append(where, fmt.Sprintf("r.order_id = $%d", len(args)))
	}
	if filter.VariantID != 0 {
		args = append(args, filter.VariantID)
		where = append(where, fmt.Sprintf("r.variant_id = $%d", len(args)))
	}

	query := `SELECT ` + procurementColumns + `, ` + variantColumns + procurementFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.id"

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query procurements: %w", err)
	}
	defer rows.Close()

	var out []core.Procurement
	for rows.Next() {
		var r core.Procurement
		v := &core.Variant{}
		if err := rows.Scan(procurementDest(&r, v)...); err != nil {
			return nil, fmt.Errorf("failed to scan procurement: %w", err)
		}
		r.Variant = v
		out = append(out, r)
	}
	return out, rows.Err()
}
