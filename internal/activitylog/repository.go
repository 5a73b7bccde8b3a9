package activitylog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frank-furt/pos-backend/internal/storage"
)

// Writer appends audit entries. AppendTx runs inside the caller's
// transaction: if the enclosing operation rolls back, so does the entry.
type Writer interface {
	AppendTx(ctx context.Context, tx storage.Tx, entryType, description string, relatedID int) error
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}

// PostgresWriter implements Writer on the activity_log table.
type PostgresWriter struct {
	db *pgxpool.Pool
}

func NewWriter(db *pgxpool.Pool) Writer {
	return &PostgresWriter{db: db}
}

func (w *PostgresWriter) AppendTx(ctx context.Context, tx storage.Tx, entryType, description string, relatedID int) error {
	_, err := storage.Unwrap(tx).Exec(ctx, `
		INSERT INTO activity_log (type, description, related_id, created_at)
		VALUES ($1, $2, $3, NOW())
	`, entryType, description, relatedID)
	return err
}

func (w *PostgresWriter) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := w.db.Query(ctx, `
		SELECT id, type, description, COALESCE(related_id, 0), created_at
		FROM activity_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Type, &e.Description, &e.RelatedID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
