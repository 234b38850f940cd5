package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrationLockKey serializes concurrent migrators on the same database.
const migrationLockKey = 7462839

var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id          SERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		phone       TEXT NOT NULL DEFAULT '',
		address     TEXT NOT NULL DEFAULT '',
		city        TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		type        TEXT NOT NULL DEFAULT 'PERSONAL' CHECK (type IN ('PERSONAL', 'RESELLER')),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS products (
		id          SERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		brand       TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		is_active   BOOLEAN NOT NULL DEFAULT true,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS variants (
		id               SERIAL PRIMARY KEY,
		product_id       INT NOT NULL REFERENCES products(id),
		options          JSONB NOT NULL DEFAULT '{}',
		option_signature TEXT NOT NULL,
		unit             TEXT NOT NULL DEFAULT 'pcs',
		stock_on_hand    NUMERIC(14,4) NOT NULL DEFAULT 0 CHECK (stock_on_hand >= 0),
		preorder_allowed BOOLEAN NOT NULL DEFAULT true,
		is_active        BOOLEAN NOT NULL DEFAULT true,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (product_id, option_signature)
	)`,

	`CREATE TABLE IF NOT EXISTS variant_prices (
		variant_id INT NOT NULL REFERENCES variants(id),
		currency   CHAR(3) NOT NULL,
		amount     BIGINT NOT NULL CHECK (amount >= 0),
		PRIMARY KEY (variant_id, currency)
	)`,

	`CREATE TABLE IF NOT EXISTS order_sequences (
		name        TEXT PRIMARY KEY,
		last_number BIGINT NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id             SERIAL PRIMARY KEY,
		order_number   TEXT NOT NULL UNIQUE,
		customer_id    INT NOT NULL REFERENCES customers(id),
		currency       CHAR(3) NOT NULL,
		payment_type   TEXT NOT NULL,
		payment_status TEXT NOT NULL DEFAULT 'NOT_PAID',
		packing_status TEXT NOT NULL DEFAULT 'NOT_READY',
		delivery_fee   BIGINT NOT NULL DEFAULT 0 CHECK (delivery_fee >= 0),
		notes          TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id)`,

	`CREATE TABLE IF NOT EXISTS order_items (
		id          SERIAL PRIMARY KEY,
		order_id    INT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		line_number INT NOT NULL,
		variant_id  INT NOT NULL REFERENCES variants(id),
		quantity    NUMERIC(14,4) NOT NULL CHECK (quantity > 0),
		unit_price  BIGINT NOT NULL CHECK (unit_price >= 0),
		is_preorder BOOLEAN NOT NULL DEFAULT false,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (order_id, line_number)
	)`,

	`CREATE TABLE IF NOT EXISTS procurements (
		id          SERIAL PRIMARY KEY,
		order_id    INT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		variant_id  INT NOT NULL REFERENCES variants(id),
		needed_qty  NUMERIC(14,4) NOT NULL CHECK (needed_qty > 0),
		status      TEXT NOT NULL DEFAULT 'TO_BUY' CHECK (status IN ('TO_BUY', 'ORDERED', 'ARRIVED')),
		notes       TEXT NOT NULL DEFAULT '',
		ordered_at  TIMESTAMPTZ,
		arrived_at  TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_procurements_status ON procurements(status)`,
	`CREATE INDEX IF NOT EXISTS idx_procurements_order_id ON procurements(order_id)`,

	`CREATE TABLE IF NOT EXISTS users (
		id            SERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'staff',
		is_active     BOOLEAN NOT NULL DEFAULT true,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the schema if it does not exist. It holds an advisory lock on a
// dedicated connection for the duration, so two processes starting together do not race.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migration: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("failed to take migration lock: %w", err)
	}
	defer conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockKey) //nolint:errcheck

	for _, stmt := range schema {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}
