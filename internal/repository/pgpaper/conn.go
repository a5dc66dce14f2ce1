// Package pgpaper stores content records in PostgreSQL with the pgvector
// extension. Uniqueness of external ids is the table's UNIQUE constraint.
package pgpaper

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq" // registers the "postgres" driver wrapped below
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
)

var (
	registerOnce sync.Once
	driverName   string
	registerErr  error
)

func tracedDriver() (string, error) {
	registerOnce.Do(func() {
		driverName, registerErr = otelsql.Register(
			"postgres",
			otelsql.TraceQueryWithoutArgs(),
			otelsql.TraceRowsClose(),
			otelsql.TraceRowsAffected(),
			otelsql.WithSystem(semconv.DBSystemPostgreSQL),
		)
	})
	return driverName, registerErr
}

// Open connects to PostgreSQL through the traced driver and verifies the
// connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	driver, err := tracedDriver()
	if err != nil {
		return nil, fmt.Errorf("register traced driver: %w", err)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := otelsql.RecordStats(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("record db stats: %w", err)
	}
	return conn, nil
}

// Migrate creates the extension and tables this package owns.
func Migrate(ctx context.Context, conn *sql.DB, dim int) error {
	for _, stmt := range schema(dim) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func schema(dim int) []string {
	vectorType := "vector"
	if dim > 0 {
		vectorType = fmt.Sprintf("vector(%d)", dim)
	}
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS papers (
			id           BIGSERIAL PRIMARY KEY,
			external_id  TEXT NOT NULL UNIQUE,
			title        TEXT NOT NULL,
			abstract     TEXT NOT NULL DEFAULT '',
			source       TEXT NOT NULL,
			url          TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ,
			metadata     JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding    ` + vectorType + `
		)`,
		`CREATE INDEX IF NOT EXISTS papers_published_at_idx ON papers (published_at DESC NULLS LAST, id)`,
		`CREATE TABLE IF NOT EXISTS embedding_cache (
			key   TEXT PRIMARY KEY,
			value BYTEA NOT NULL
		)`,
	}
}
