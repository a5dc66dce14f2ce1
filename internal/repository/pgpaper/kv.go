package pgpaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kailas-cloud/paperdex/internal/db"
)

// KV is a byte store over the embedding_cache table.
type KV struct {
	conn *sql.DB
}

// NewKV creates a table-backed key-value store.
func NewKV(conn *sql.DB) *KV {
	return &KV{conn: conn}
}

// Get returns the value for key or db.ErrKeyNotFound.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := k.conn.QueryRowContext(ctx, `SELECT value FROM embedding_cache WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: "SELECT", Err: err}
	}
	return v, nil
}

// Set stores value at key; the last writer wins.
func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	_, err := k.conn.ExecContext(ctx, `
		INSERT INTO embedding_cache (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return &db.Error{Op: "UPSERT", Err: fmt.Errorf("key %s: %w", key, err)}
	}
	return nil
}
