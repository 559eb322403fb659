package paint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Register postgres driver
)

const paintColumns = `id, brand, color_name, color_code, hex_color, finish, coverage, price, in_stock, popular`

var schemaQueries = []string{
	`CREATE TABLE IF NOT EXISTS paint_products (
		id TEXT PRIMARY KEY,
		brand TEXT NOT NULL,
		color_name TEXT NOT NULL,
		color_code TEXT NOT NULL DEFAULT '',
		hex_color TEXT NOT NULL,
		finish TEXT NOT NULL DEFAULT '',
		coverage DOUBLE PRECISION NOT NULL DEFAULT 0,
		price DOUBLE PRECISION NOT NULL DEFAULT 0,
		in_stock BOOLEAN NOT NULL DEFAULT TRUE,
		popular BOOLEAN NOT NULL DEFAULT FALSE
	);`,
	`CREATE INDEX IF NOT EXISTS paint_products_brand_idx ON paint_products (brand);`,
	`CREATE INDEX IF NOT EXISTS paint_products_in_stock_idx ON paint_products (in_stock);`,
}

// PostgresStore reads the catalog from the paint_products table.
type PostgresStore struct {
	db *sqlx.DB
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close closes the underlying pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the paint_products table and its indexes if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, q := range schemaQueries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Query implements Store.
func (s *PostgresStore) Query(ctx context.Context, f Filter) ([]PaintRecord, error) {
	q, args := buildQuery(f)
	out := []PaintRecord{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("failed to query paints: %w", err)
	}
	return out, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (*PaintRecord, error) {
	var rec PaintRecord
	q := s.db.Rebind(`SELECT ` + paintColumns + ` FROM paint_products WHERE id = ?`)
	if err := s.db.GetContext(ctx, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrPaintNotFound, id)
		}
		return nil, fmt.Errorf("failed to get paint %s: %w", id, err)
	}
	return &rec, nil
}

// Brands counts products per brand in the database.
func (s *PostgresStore) Brands(ctx context.Context) ([]Brand, error) {
	out := []Brand{}
	q := `SELECT brand AS name, COUNT(*) AS product_count FROM paint_products GROUP BY brand ORDER BY brand ASC`
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	return out, nil
}

// Upsert inserts records, replacing any existing row with the same id.
func (s *PostgresStore) Upsert(ctx context.Context, records []PaintRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := `INSERT INTO paint_products (` + paintColumns + `)
		VALUES (:id, :brand, :color_name, :color_code, :hex_color, :finish, :coverage, :price, :in_stock, :popular)
		ON CONFLICT (id) DO UPDATE SET
			brand = EXCLUDED.brand,
			color_name = EXCLUDED.color_name,
			color_code = EXCLUDED.color_code,
			hex_color = EXCLUDED.hex_color,
			finish = EXCLUDED.finish,
			coverage = EXCLUDED.coverage,
			price = EXCLUDED.price,
			in_stock = EXCLUDED.in_stock,
			popular = EXCLUDED.popular`
	for _, rec := range records {
		if _, err := tx.NamedExecContext(ctx, q, rec); err != nil {
			return fmt.Errorf("failed to upsert paint %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// buildQuery returns a SELECT with one bound '?' parameter per set filter field.
func buildQuery(f Filter) (string, []any) {
	var where []string
	var args []any

	if f.Brand != "" {
		where = append(where, "brand = ?")
		args = append(args, f.Brand)
	}
	if f.Finish != "" {
		where = append(where, "finish = ?")
		args = append(args, f.Finish)
	}
	if f.Popular != nil {
		where = append(where, "popular = ?")
		args = append(args, *f.Popular)
	}
	if f.InStock != nil {
		where = append(where, "in_stock = ?")
		args = append(args, *f.InStock)
	}

	q := `SELECT ` + paintColumns + ` FROM paint_products`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	return q, args
}
