package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

type StoreRepository struct {
	db *sql.DB
}

func NewStoreRepository(db *sql.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *StoreRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS stores (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	lat DOUBLE PRECISION NOT NULL,
	lng DOUBLE PRECISION NOT NULL,
	products JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stores_city ON stores(city);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *StoreRepository) ListStores(ctx context.Context) ([]domain.Store, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT name, address, city, lat, lng, products
FROM stores
ORDER BY id
`)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreDataUnavailable, "list stores", err)
	}
	defer rows.Close()

	stores := make([]domain.Store, 0)
	for rows.Next() {
		var store domain.Store
		var productsRaw []byte
		if err := rows.Scan(&store.Name, &store.Address, &store.City, &store.Lat, &store.Lng, &productsRaw); err != nil {
			return nil, domain.WrapError(domain.ErrStoreDataUnavailable, "scan store", err)
		}
		if err := json.Unmarshal(productsRaw, &store.Products); err != nil {
			return nil, domain.WrapError(domain.ErrStoreDataUnavailable, "unmarshal store products", err)
		}
		stores = append(stores, store)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStoreDataUnavailable, "iterate stores", err)
	}
	return stores, nil
}

// ReplaceAll swaps the whole dataset in one transaction.
func (r *StoreRepository) ReplaceAll(ctx context.Context, stores []domain.Store) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stores`); err != nil {
		return fmt.Errorf("clear stores: %w", err)
	}

	now := time.Now().UTC()
	for _, store := range stores {
		products := store.Products
		if products == nil {
			products = []domain.Product{}
		}
		productsJSON, err := json.Marshal(products)
		if err != nil {
			return fmt.Errorf("marshal products: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO stores (name, address, city, lat, lng, products, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, store.Name, store.Address, store.City, store.Lat, store.Lng, productsJSON, now)
		if err != nil {
			return fmt.Errorf("insert store %q: %w", store.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace tx: %w", err)
	}
	return nil
}
