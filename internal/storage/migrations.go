package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the DDL applied at startup. Statements are idempotent so the
// server can restart against an already-provisioned database.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tables (
		id SERIAL PRIMARY KEY,
		number VARCHAR(50) NOT NULL,
		capacity INT NOT NULL DEFAULT 4,
		location VARCHAR(100) NOT NULL DEFAULT '',
		status VARCHAR(30) NOT NULL DEFAULT 'disponible'
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price BIGINT NOT NULL CHECK (price >= 0),
		category VARCHAR(100) NOT NULL DEFAULT '',
		available BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		id SERIAL PRIMARY KEY,
		product_id INT NOT NULL UNIQUE REFERENCES products(id),
		quantity INT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		min_quantity INT NOT NULL DEFAULT 0,
		max_quantity INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_movements (
		id SERIAL PRIMARY KEY,
		inventory_id INT NOT NULL REFERENCES inventory(id),
		movement_type VARCHAR(20) NOT NULL,
		quantity INT NOT NULL CHECK (quantity > 0),
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id SERIAL PRIMARY KEY,
		table_id INT NOT NULL REFERENCES tables(id),
		order_type VARCHAR(30) NOT NULL DEFAULT 'Manual',
		status VARCHAR(30) NOT NULL DEFAULT 'Pendiente',
		total BIGINT NOT NULL CHECK (total >= 0),
		payment_method VARCHAR(30),
		tip BIGINT,
		observations TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		paid_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id SERIAL PRIMARY KEY,
		order_id INT NOT NULL REFERENCES orders(id),
		product_id INT NOT NULL REFERENCES products(id),
		quantity INT NOT NULL CHECK (quantity > 0),
		unit_price BIGINT NOT NULL,
		subtotal BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS activity_log (
		id SERIAL PRIMARY KEY,
		type VARCHAR(50) NOT NULL,
		description TEXT NOT NULL,
		related_id INT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_movements_inventory_id ON inventory_movements(inventory_id)`,
}

// Migrate applies the schema to the connected database.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
