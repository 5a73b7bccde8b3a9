package inventory

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frank-furt/pos-backend/internal/storage"
)

// Repository defines the persistence operations of the stock ledger.
type Repository interface {
	BeginTx(ctx context.Context) (storage.Tx, error)

	GetRecordForUpdate(ctx context.Context, tx storage.Tx, inventoryID int) (*StockRecord, error)
	IncrementStock(ctx context.Context, tx storage.Tx, inventoryID, quantity int) error
	DecrementStock(ctx context.Context, tx storage.Tx, inventoryID, quantity int) (int64, error)
	InsertMovement(ctx context.Context, tx storage.Tx, inventoryID int, movementType string, quantity int, description string) (int, error)

	ListRecords(ctx context.Context) ([]StockRecord, error)
	CreateRecord(ctx context.Context, rec *StockRecord) (int, error)
	UpdateThresholds(ctx context.Context, inventoryID, minQuantity, maxQuantity int) (int64, error)

	ListMovements(ctx context.Context) ([]StockMovement, error)
	ListMovementsByProduct(ctx context.Context, productID int) ([]StockMovement, error)
	ListMovementsByType(ctx context.Context, movementType string) ([]StockMovement, error)
	Summary(ctx context.Context, recentLimit int) (*MovementsSummary, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &storage.PgxTx{Tx: tx}, nil
}

// GetRecordForUpdate locks the stock record so concurrent movements against
// the same product serialize.
func (r *PostgresRepository) GetRecordForUpdate(ctx context.Context, tx storage.Tx, inventoryID int) (*StockRecord, error) {
	var rec StockRecord
	err := storage.Unwrap(tx).QueryRow(ctx, `
		SELECT i.id, i.product_id, p.name, i.quantity, i.min_quantity, i.max_quantity, i.updated_at
		FROM inventory i
		JOIN products p ON i.product_id = p.id
		WHERE i.id = $1
		FOR UPDATE OF i
	`, inventoryID).Scan(&rec.ID, &rec.ProductID, &rec.ProductName, &rec.Quantity,
		&rec.MinQuantity, &rec.MaxQuantity, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresRepository) IncrementStock(ctx context.Context, tx storage.Tx, inventoryID, quantity int) error {
	_, err := storage.Unwrap(tx).Exec(ctx, `
		UPDATE inventory
		SET quantity = quantity + $1, updated_at = NOW()
		WHERE id = $2
	`, quantity, inventoryID)
	return err
}

// DecrementStock applies a conditional decrement that can never take the
// quantity below zero. Callers must check the affected count.
func (r *PostgresRepository) DecrementStock(ctx context.Context, tx storage.Tx, inventoryID, quantity int) (int64, error) {
	tag, err := storage.Unwrap(tx).Exec(ctx, `
		UPDATE inventory
		SET quantity = quantity - $1, updated_at = NOW()
		WHERE id = $2 AND quantity >= $1
	`, quantity, inventoryID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) InsertMovement(ctx context.Context, tx storage.Tx, inventoryID int, movementType string, quantity int, description string) (int, error) {
	var id int
	err := storage.Unwrap(tx).QueryRow(ctx, `
		INSERT INTO inventory_movements (inventory_id, movement_type, quantity, description, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NOW())
		RETURNING id
	`, inventoryID, movementType, quantity, description).Scan(&id)
	return id, err
}

func (r *PostgresRepository) ListRecords(ctx context.Context) ([]StockRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.id, i.product_id, p.name, i.quantity, i.min_quantity, i.max_quantity, i.updated_at
		FROM inventory i
		JOIN products p ON i.product_id = p.id
		ORDER BY p.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *PostgresRepository) CreateRecord(ctx context.Context, rec *StockRecord) (int, error) {
	var id int
	err := r.db.QueryRow(ctx, `
		INSERT INTO inventory (product_id, quantity, min_quantity, max_quantity, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id
	`, rec.ProductID, rec.Quantity, rec.MinQuantity, rec.MaxQuantity).Scan(&id)
	return id, err
}

func (r *PostgresRepository) UpdateThresholds(ctx context.Context, inventoryID, minQuantity, maxQuantity int) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE inventory
		SET min_quantity = $1, max_quantity = $2, updated_at = NOW()
		WHERE id = $3
	`, minQuantity, maxQuantity, inventoryID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const movementSelect = `
	SELECT im.id, im.inventory_id, i.product_id, p.name, im.movement_type,
	       im.quantity, COALESCE(im.description, ''), im.created_at
	FROM inventory_movements im
	JOIN inventory i ON im.inventory_id = i.id
	JOIN products p ON i.product_id = p.id
`

func (r *PostgresRepository) ListMovements(ctx context.Context) ([]StockMovement, error) {
	rows, err := r.db.Query(ctx, movementSelect+` ORDER BY im.created_at DESC, im.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

func (r *PostgresRepository) ListMovementsByProduct(ctx context.Context, productID int) ([]StockMovement, error) {
	rows, err := r.db.Query(ctx, movementSelect+`
		WHERE p.id = $1
		ORDER BY im.created_at DESC, im.id DESC
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

func (r *PostgresRepository) ListMovementsByType(ctx context.Context, movementType string) ([]StockMovement, error) {
	rows, err := r.db.Query(ctx, movementSelect+`
		WHERE im.movement_type = $1
		ORDER BY im.created_at DESC, im.id DESC
	`, movementType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

func (r *PostgresRepository) Summary(ctx context.Context, recentLimit int) (*MovementsSummary, error) {
	var s MovementsSummary
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE movement_type = $1),
			COUNT(*) FILTER (WHERE movement_type = $2),
			COALESCE(SUM(quantity) FILTER (WHERE movement_type = $1), 0),
			COALESCE(SUM(quantity) FILTER (WHERE movement_type = $2), 0)
		FROM inventory_movements
	`, MovementEntry, MovementExit).Scan(
		&s.TotalMovements, &s.TotalEntries, &s.TotalExits, &s.QuantityIn, &s.QuantityOut)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, movementSelect+`
		ORDER BY im.created_at DESC, im.id DESC
		LIMIT $1
	`, recentLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s.Recent, err = scanMovements(rows)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows pgxRows) ([]StockRecord, error) {
	records := []StockRecord{}
	for rows.Next() {
		var rec StockRecord
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.ProductName, &rec.Quantity,
			&rec.MinQuantity, &rec.MaxQuantity, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanMovements(rows pgxRows) ([]StockMovement, error) {
	movements := []StockMovement{}
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.InventoryID, &m.ProductID, &m.ProductName,
			&m.Type, &m.Quantity, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
