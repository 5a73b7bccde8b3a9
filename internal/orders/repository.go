package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frank-furt/pos-backend/internal/menu"
	"github.com/frank-furt/pos-backend/internal/storage"
)

// Repository defines the persistence operations of the order workflow. Every
// method taking a storage.Tx runs inside that transaction; the use case owns
// commit and rollback.
type Repository interface {
	BeginTx(ctx context.Context) (storage.Tx, error)

	GetTableForUpdate(ctx context.Context, tx storage.Tx, tableID int) (*Table, error)
	UpdateTableStatus(ctx context.Context, tx storage.Tx, tableID int, status string) error
	ReleaseTable(ctx context.Context, tx storage.Tx, tableID int) error

	GetAvailableProduct(ctx context.Context, tx storage.Tx, productID int) (*menu.Product, error)
	GetStockForUpdate(ctx context.Context, tx storage.Tx, productID int) (inventoryID int, quantity int, err error)
	DecrementStock(ctx context.Context, tx storage.Tx, inventoryID, quantity int) (int64, error)
	InsertStockExit(ctx context.Context, tx storage.Tx, inventoryID, quantity int, description string) error

	InsertOrder(ctx context.Context, tx storage.Tx, order *Order) (int, error)
	InsertOrderItem(ctx context.Context, tx storage.Tx, item *OrderItem) error
	GetOrderForUpdate(ctx context.Context, tx storage.Tx, orderID int) (*Order, error)
	UpdateOrderStatus(ctx context.Context, tx storage.Tx, orderID int, status string) error
	MarkOrderPaid(ctx context.Context, tx storage.Tx, orderID int, method string, tip int64) error
	MarkOrderCancelled(ctx context.Context, tx storage.Tx, orderID int, reason string) error

	ListPending(ctx context.Context) ([]PendingOrder, error)
	GetOrder(ctx context.Context, orderID int) (*Order, error)
	GetOrderItems(ctx context.Context, orderID int) ([]OrderItem, error)
	ListAvailableTables(ctx context.Context) ([]Table, error)
	DailySummary(ctx context.Context, day time.Time) (*DailySummary, error)
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

// GetTableForUpdate locks the table row for the duration of the transaction
// so concurrent orders against the same table serialize.
func (r *PostgresRepository) GetTableForUpdate(ctx context.Context, tx storage.Tx, tableID int) (*Table, error) {
	var t Table
	err := storage.Unwrap(tx).QueryRow(ctx, `
		SELECT id, number, capacity, location, status
		FROM tables
		WHERE id = $1
		FOR UPDATE
	`, tableID).Scan(&t.ID, &t.Number, &t.Capacity, &t.Location, &t.Status)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepository) UpdateTableStatus(ctx context.Context, tx storage.Tx, tableID int, status string) error {
	_, err := storage.Unwrap(tx).Exec(ctx, `
		UPDATE tables SET status = $1 WHERE id = $2
	`, status, tableID)
	return err
}

// ReleaseTable frees the table only if it is currently occupied, so a
// release can never happen twice for the same sitting.
func (r *PostgresRepository) ReleaseTable(ctx context.Context, tx storage.Tx, tableID int) error {
	_, err := storage.Unwrap(tx).Exec(ctx, `
		UPDATE tables SET status = $1 WHERE id = $2 AND status = $3
	`, TableAvailable, tableID, TableOccupied)
	return err
}

// GetAvailableProduct reads a product only if it is currently for sale. The
// returned price is the snapshot fixed into the order line.
func (r *PostgresRepository) GetAvailableProduct(ctx context.Context, tx storage.Tx, productID int) (*menu.Product, error) {
	var p menu.Product
	err := storage.Unwrap(tx).QueryRow(ctx, `
		SELECT id, name, price, category, available
		FROM products
		WHERE id = $1 AND available = TRUE
	`, productID).Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Available)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetStockForUpdate locks the stock record of a product with FOR UPDATE so
// two concurrent orders cannot both pass the sufficiency check.
func (r *PostgresRepository) GetStockForUpdate(ctx context.Context, tx storage.Tx, productID int) (int, int, error) {
	var inventoryID, quantity int
	err := storage.Unwrap(tx).QueryRow(ctx, `
		SELECT id, quantity
		FROM inventory
		WHERE product_id = $1
		FOR UPDATE
	`, productID).Scan(&inventoryID, &quantity)
	if err != nil {
		return 0, 0, err
	}
	return inventoryID, quantity, nil
}

// DecrementStock applies a conditional decrement. The WHERE guard keeps the
// quantity from ever going negative; callers must check the affected count.
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

func (r *PostgresRepository) InsertStockExit(ctx context.Context, tx storage.Tx, inventoryID, quantity int, description string) error {
	_, err := storage.Unwrap(tx).Exec(ctx, `
		INSERT INTO inventory_movements (inventory_id, movement_type, quantity, description, created_at)
		VALUES ($1, 'salida', $2, $3, NOW())
	`, inventoryID, quantity, description)
	return err
}

func (r *PostgresRepository) InsertOrder(ctx context.Context, tx storage.Tx, order *Order) (int, error) {
	var id int
	err := storage.Unwrap(tx).QueryRow(ctx, `
		INSERT INTO orders (table_id, order_type, status, total, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, order.TableID, order.OrderType, order.Status, order.Total, order.CreatedAt).Scan(&id)
	return id, err
}

func (r *PostgresRepository) InsertOrderItem(ctx context.Context, tx storage.Tx, item *OrderItem) error {
	_, err := storage.Unwrap(tx).Exec(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5)
	`, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal)
	return err
}

// GetOrderForUpdate locks the order row so concurrent status transitions on
// the same order serialize.
func (r *PostgresRepository) GetOrderForUpdate(ctx context.Context, tx storage.Tx, orderID int) (*Order, error) {
	var o Order
	var payment, observations *string
	var tip *int64
	err := storage.Unwrap(tx).QueryRow(ctx, `
		SELECT id, table_id, order_type, status, total, payment_method, tip, observations, created_at, paid_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&o.ID, &o.TableID, &o.OrderType, &o.Status, &o.Total, &payment, &tip, &observations, &o.CreatedAt, &o.PaidAt)
	if err != nil {
		return nil, err
	}
	applyNullable(&o, payment, tip, observations)
	return &o, nil
}

func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, tx storage.Tx, orderID int, status string) error {
	_, err := storage.Unwrap(tx).Exec(ctx, `
		UPDATE orders SET status = $1 WHERE id = $2
	`, status, orderID)
	return err
}

func (r *PostgresRepository) MarkOrderPaid(ctx context.Context, tx storage.Tx, orderID int, method string, tip int64) error {
	_, err := storage.Unwrap(tx).Exec(ctx, `
		UPDATE orders
		SET status = $1, payment_method = $2, tip = $3, paid_at = NOW()
		WHERE id = $4
	`, StatusPaid, method, tip, orderID)
	return err
}

// MarkOrderCancelled flips the status and appends the reason to the
// observations column, preserving whatever was already there.
func (r *PostgresRepository) MarkOrderCancelled(ctx context.Context, tx storage.Tx, orderID int, reason string) error {
	_, err := storage.Unwrap(tx).Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    observations = CONCAT(COALESCE(observations, ''), ' - CANCELADO: ', $2::text)
		WHERE id = $3
	`, StatusCancelled, reason, orderID)
	return err
}

func (r *PostgresRepository) ListPending(ctx context.Context) ([]PendingOrder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			o.id,
			o.table_id,
			t.number,
			o.created_at,
			o.total,
			o.status,
			COALESCE(o.observations, ''),
			COUNT(oi.id),
			STRING_AGG(p.name || ' (' || oi.quantity || ')', ', ' ORDER BY oi.id)
		FROM orders o
		JOIN tables t ON o.table_id = t.id
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON oi.product_id = p.id
		WHERE o.status = $1 AND o.order_type = $2
		GROUP BY o.id, o.table_id, t.number, o.created_at, o.total, o.status, o.observations
		ORDER BY o.created_at DESC
	`, StatusPending, OrderTypeManual)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := []PendingOrder{}
	for rows.Next() {
		var p PendingOrder
		if err := rows.Scan(&p.ID, &p.TableID, &p.TableNumber, &p.CreatedAt, &p.Total,
			&p.Status, &p.Observations, &p.ItemCount, &p.Products); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (r *PostgresRepository) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	var o Order
	var payment, observations *string
	var tip *int64
	err := r.db.QueryRow(ctx, `
		SELECT o.id, o.table_id, t.number, o.order_type, o.status, o.total,
		       o.payment_method, o.tip, o.observations, o.created_at, o.paid_at
		FROM orders o
		JOIN tables t ON o.table_id = t.id
		WHERE o.id = $1
	`, orderID).Scan(&o.ID, &o.TableID, &o.TableNumber, &o.OrderType, &o.Status, &o.Total,
		&payment, &tip, &observations, &o.CreatedAt, &o.PaidAt)
	if err != nil {
		return nil, err
	}
	applyNullable(&o, payment, tip, observations)
	return &o, nil
}

func (r *PostgresRepository) GetOrderItems(ctx context.Context, orderID int) ([]OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, p.category,
		       oi.quantity, oi.unit_price, oi.subtotal
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = $1
		ORDER BY p.category, p.name
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []OrderItem{}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Category,
			&it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) ListAvailableTables(ctx context.Context) ([]Table, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, number, capacity, location, status
		FROM tables
		WHERE status = $1
		ORDER BY id
	`, TableAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []Table{}
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.ID, &t.Number, &t.Capacity, &t.Location, &t.Status); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (r *PostgresRepository) DailySummary(ctx context.Context, day time.Time) (*DailySummary, error) {
	var s DailySummary
	s.Date = day.Format("2006-01-02")
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COALESCE(SUM(total) FILTER (WHERE status = $1), 0),
			COALESCE(SUM(tip) FILTER (WHERE status = $1), 0),
			COALESCE(AVG(total) FILTER (WHERE status = $1), 0)
		FROM orders
		WHERE created_at::date = $4::date AND order_type = $5
	`, StatusPaid, StatusPending, StatusCancelled, day, OrderTypeManual).Scan(
		&s.TotalOrders, &s.PaidOrders, &s.PendingOrders, &s.CancelledOrders,
		&s.TotalSales, &s.TotalTips, &s.AverageTicket)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily summary: %w", err)
	}
	return &s, nil
}

func applyNullable(o *Order, payment *string, tip *int64, observations *string) {
	if payment != nil {
		o.PaymentMethod = *payment
	}
	if tip != nil {
		o.Tip = *tip
	}
	if observations != nil {
		o.Observations = *observations
	}
}
