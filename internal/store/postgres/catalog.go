package postgres

import (
	"context"
	"fmt"

	"order-desk/internal/core"

	"github.com/shopspring/decimal"
)

// ── Customers ────────────────────────────────────────────────────────────────

const customerColumns = `c.id, c.name, c.phone, c.address, c.city, c.postal_code, c.type, c.created_at, c.updated_at`

func scanCustomer(row scanner, c *core.Customer) error {
	return row.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.City, &c.PostalCode, &c.Type, &c.CreatedAt, &c.UpdatedAt)
}

func (t *tx) InsertCustomer(ctx context.Context, c *core.Customer) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO customers (name, phone, address, city, postal_code, type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, c.Name, c.Phone, c.Address, c.City, c.PostalCode, c.Type).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return classify(fmt.Errorf("failed to insert customer: %w", err))
	}
	return nil
}

func (t *tx) GetCustomer(ctx context.Context, id int) (*core.Customer, error) {
	var c core.Customer
	row := t.tx.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers c WHERE c.id = $1`, id)
	if err := scanCustomer(row, &c); err != nil {
		return nil, notFound("customer", id, err)
	}
	return &c, nil
}

func (t *tx) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+customerColumns+` FROM customers c ORDER BY c.name, c.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var out []core.Customer
	for rows.Next() {
		var c core.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ── Products ─────────────────────────────────────────────────────────────────

const productColumns = `id, name, brand, description, is_active, created_at, updated_at`

func scanProduct(row scanner, p *core.Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Brand, &p.Description, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
}

func (t *tx) InsertProduct(ctx context.Context, p *core.Product) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO products (name, brand, description, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, p.Name, p.Brand, p.Description, p.IsActive).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return classify(fmt.Errorf("failed to insert product: %w", err))
	}
	return nil
}

func (t *tx) GetProduct(ctx context.Context, id int) (*core.Product, error) {
	var p core.Product
	row := t.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err := scanProduct(row, &p); err != nil {
		return nil, notFound("product", id, err)
	}
	return &p, nil
}

func (t *tx) ListProducts(ctx context.Context) ([]core.Product, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active = true ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var out []core.Product
	for rows.Next() {
		var p core.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ── Variants ─────────────────────────────────────────────────────────────────

const variantColumns = `v.id, v.product_id, p.name, v.options, v.option_signature, v.unit,
	v.stock_on_hand, v.preorder_allowed, v.is_active, v.created_at, v.updated_at`

func variantDest(v *core.Variant) []any {
	return []any{&v.ID, &v.ProductID, &v.ProductName, &v.Options, &v.OptionSignature, &v.Unit,
		&v.StockOnHand, &v.PreorderAllowed, &v.IsActive, &v.CreatedAt, &v.UpdatedAt}
}

func (t *tx) InsertVariant(ctx context.Context, v *core.Variant) error {
	options := v.Options
	if options == nil {
		options = map[string]string{}
	}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO variants (product_id, options, option_signature, unit, stock_on_hand, preorder_allowed, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, v.ProductID, options, v.OptionSignature, v.Unit, v.StockOnHand, v.PreorderAllowed, v.IsActive,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return classify(fmt.Errorf("failed to insert variant %q of product %d: %w", v.OptionSignature, v.ProductID, err))
	}

	for currency, amount := range v.Prices {
		if err := t.UpsertVariantPrice(ctx, v.ID, currency, amount); err != nil {
			return err
		}
	}
	if v.Prices == nil {
		v.Prices = map[string]int64{}
	}
	return nil
}

func (t *tx) GetVariant(ctx context.Context, id int) (*core.Variant, error) {
	return t.fetchVariant(ctx, id, "")
}

func (t *tx) LockVariant(ctx context.Context, id int) (*core.Variant, error) {
	return t.fetchVariant(ctx, id, " FOR UPDATE OF v")
}

func (t *tx) fetchVariant(ctx context.Context, id int, lock string) (*core.Variant, error) {
	var v core.Variant
	err := t.tx.QueryRow(ctx, `
		SELECT `+variantColumns+`
		FROM variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = $1`+lock, id).Scan(variantDest(&v)...)
	if err != nil {
		return nil, notFound("variant", id, err)
	}
	if v.Prices, err = t.variantPrices(ctx, id); err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *tx) variantPrices(ctx context.Context, id int) (map[string]int64, error) {
	rows, err := t.tx.Query(ctx, `SELECT currency, amount FROM variant_prices WHERE variant_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices of variant %d: %w", id, err)
	}
	defer rows.Close()

	prices := map[string]int64{}
	for rows.Next() {
		var currency string
		var amount int64
		if err := rows.Scan(&currency, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices[currency] = amount
	}
	return prices, rows.Err()
}

func (t *tx) ListVariants(ctx context.Context, productID int) ([]core.Variant, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+variantColumns+`
		FROM variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.product_id = $1
		ORDER BY v.id`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}

	var out []core.Variant
	for rows.Next() {
		var v core.Variant
		if err := rows.Scan(variantDest(&v)...); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		out = append(out, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Prices are fetched after the cursor is closed: a pgx.Tx runs one query at a time.
	for i := range out {
		if out[i].Prices, err = t.variantPrices(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *tx) UpdateVariantStock(ctx context.Context, id int, stock decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE variants SET stock_on_hand = $2, updated_at = NOW() WHERE id = $1
	`, id, stock)
	if err != nil {
		return classify(fmt.Errorf("failed to update stock of variant %d: %w", id, err))
	}
	return mustAffect(tag, "variant", id)
}

func (t *tx) SetVariantActive(ctx context.Context, id int, active bool) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE variants SET is_active = $2, updated_at = NOW() WHERE id = $1
	`, id, active)
	if err != nil {
		return classify(fmt.Errorf("failed to update variant %d: %w", id, err))
	}
	return mustAffect(tag, "variant", id)
}

func (t *tx) UpsertVariantPrice(ctx context.Context, id int, currency string, amount int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO variant_prices (variant_id, currency, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (variant_id, currency) DO UPDATE SET amount = EXCLUDED.amount
	`, id, currency, amount)
	if err != nil {
		return classify(fmt.Errorf("failed to set %s price of variant %d: %w", currency, id, err))
	}
	return nil
}
