package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frank-furt/pos-backend/internal/config"
)

// Tx is the transaction handle shared by every repository. Write operations
// that must commit or roll back together all run against the same Tx.
type Tx interface {
	Commit() error
	Rollback() error
}

// PgxTx wraps a pgx transaction. Repositories unwrap it to run queries
// inside the transaction.
type PgxTx struct {
	Tx pgx.Tx
}

func (t *PgxTx) Commit() error {
	return t.Tx.Commit(context.Background())
}

func (t *PgxTx) Rollback() error {
	return t.Tx.Rollback(context.Background())
}

// Unwrap returns the underlying pgx.Tx of a storage Tx.
func Unwrap(tx Tx) pgx.Tx {
	return tx.(*PgxTx).Tx
}

// NewPool opens the PostgreSQL connection pool and waits for the database
// to become reachable.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolCfg.MaxConns = cfg.DatabaseMaxConns
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			log.Println("✅ Connected to database with connection pool")
			return pool, nil
		}
		log.Printf("⏳ Waiting for database... (%d/30)", i+1)
		time.Sleep(1 * time.Second)
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}
