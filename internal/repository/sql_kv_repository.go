package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/canvas-assignment-manager/internal/models"
)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv_store (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`

// SQLKVRepository keeps store entries in the kv_store table. It works against PostgreSQL and
// SQLite; queries are rebound to the driver's placeholder style.
type SQLKVRepository struct {
	db     *sqlx.DB
	prefix string
	now    func() time.Time
}

// NewSQLKVRepository constructs the repository.
func NewSQLKVRepository(db *sqlx.DB, prefix string) *SQLKVRepository {
	return &SQLKVRepository{db: db, prefix: prefix, now: time.Now}
}

// EnsureSchema creates the kv_store table when missing.
func (r *SQLKVRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, kvSchema); err != nil {
		return fmt.Errorf("create kv_store: %w", err)
	}
	return nil
}

// Get returns the value for key.
func (r *SQLKVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	query := r.db.Rebind(`SELECT key, value, updated_at FROM kv_store WHERE key = ?`)
	var entry models.KVEntry
	err := r.db.GetContext(ctx, &entry, query, namespaced(r.prefix, key))
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get kv %s: %w", key, err)
	}
	return entry.Value, true, nil
}

// Set upserts value under key.
func (r *SQLKVRepository) Set(ctx context.Context, key, value string) error {
	query := r.db.Rebind(`INSERT INTO kv_store (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`)
	if _, err := r.db.ExecContext(ctx, query, namespaced(r.prefix, key), value, r.now().UTC()); err != nil {
		return fmt.Errorf("upsert kv %s: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (r *SQLKVRepository) Remove(ctx context.Context, key string) error {
	query := r.db.Rebind(`DELETE FROM kv_store WHERE key = ?`)
	if _, err := r.db.ExecContext(ctx, query, namespaced(r.prefix, key)); err != nil {
		return fmt.Errorf("delete kv %s: %w", key, err)
	}
	return nil
}
