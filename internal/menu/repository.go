package menu

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the persistence operations of the menu catalogue.
type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) (int, error)
	UpdateProduct(ctx context.Context, p *Product) (int64, error)
	DeleteProduct(ctx context.Context, id int) (int64, error)
	ProductReferenced(ctx context.Context, id int) (bool, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, price, category, available
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Available); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *PostgresRepository) GetProduct(ctx context.Context, id int) (*Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, `
		SELECT id, name, price, category, available
		FROM products WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Available)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) CreateProduct(ctx context.Context, p *Product) (int, error) {
	var id int
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (name, price, category, available)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, p.Name, p.Price, p.Category, p.Available).Scan(&id)
	return id, err
}

func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *Product) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET name = $1, price = $2, category = $3, available = $4
		WHERE id = $5
	`, p.Name, p.Price, p.Category, p.Available, p.ID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ProductReferenced reports whether any order line or stock record points at
// the product. Referenced products must not be deleted.
func (r *PostgresRepository) ProductReferenced(ctx context.Context, id int) (bool, error) {
	var referenced bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM order_items WHERE product_id = $1)
		    OR EXISTS(SELECT 1 FROM inventory WHERE product_id = $2)
	`, id, id).Scan(&referenced)
	return referenced, err
}
