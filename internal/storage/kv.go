package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/othala/internal/apperr"
)

const kvSchemaSQL = `
CREATE TABLE IF NOT EXISTS blobs (
	workspace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	data       BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (workspace, key)
);
`

// KV implements Backend on a single SQLite table. Every entry lives in one
// flat (workspace, key) → data row; a put is one atomic statement.
type KV struct {
	conn  *sql.DB
	quota int64
}

// OpenKV opens (or creates) the SQLite database and applies the schema.
func OpenKV(dsn string, quota int64) (*KV, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open kv db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping kv db: %w", err)
	}
	if _, err := conn.Exec(kvSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply kv schema: %w", err)
	}
	return &KV{conn: conn, quota: quota}, nil
}

func (k *KV) Name() string { return "kv" }

func (k *KV) Put(ctx context.Context, workspace, key string, data []byte) error {
	if workspace == "" {
		return fmt.Errorf("storage: empty workspace")
	}
	if err := k.checkQuota(ctx, workspace, key, int64(len(data))); err != nil {
		return err
	}
	_, err := k.conn.ExecContext(ctx, `
		INSERT INTO blobs (workspace, key, data, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(workspace, key) DO UPDATE SET
			data       = excluded.data,
			updated_at = excluded.updated_at
	`, workspace, key, data)
	if err != nil {
		return fmt.Errorf("storage: put %s/%s: %w", workspace, key, err)
	}
	return nil
}

func (k *KV) Get(ctx context.Context, workspace, key string) ([]byte, error) {
	var data []byte
	err := k.conn.QueryRowContext(ctx,
		`SELECT data FROM blobs WHERE workspace = ? AND key = ?`,
		workspace, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage: %s/%s: %w", workspace, key, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get %s/%s: %w", workspace, key, err)
	}
	return data, nil
}

func (k *KV) Delete(ctx context.Context, workspace, key string) error {
	_, err := k.conn.ExecContext(ctx,
		`DELETE FROM blobs WHERE workspace = ? AND key = ?`, workspace, key)
	if err != nil {
		return fmt.Errorf("storage: delete %s/%s: %w", workspace, key, err)
	}
	return nil
}

func (k *KV) List(ctx context.Context, workspace string) ([]string, error) {
	rows, err := k.conn.QueryContext(ctx,
		`SELECT key FROM blobs WHERE workspace = ?`, workspace)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", workspace, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (k *KV) Drop(ctx context.Context, workspace string) error {
	_, err := k.conn.ExecContext(ctx,
		`DELETE FROM blobs WHERE workspace = ?`, workspace)
	if err != nil {
		return fmt.Errorf("storage: drop %s: %w", workspace, err)
	}
	return nil
}

func (k *KV) Usage(ctx context.Context) (int64, error) {
	var total int64
	err := k.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(LENGTH(data)), 0) FROM blobs`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("storage: usage: %w", err)
	}
	return total, nil
}

func (k *KV) Quota() int64 { return k.quota }

func (k *KV) Close() error {
	return k.conn.Close()
}

func (k *KV) checkQuota(ctx context.Context, workspace, key string, incoming int64) error {
	if k.quota <= 0 {
		return nil
	}
	used, err := k.Usage(ctx)
	if err != nil {
		return err
	}
	var existing int64
	err = k.conn.QueryRowContext(ctx,
		`SELECT COALESCE(LENGTH(data), 0) FROM blobs WHERE workspace = ? AND key = ?`,
		workspace, key).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if used-existing+incoming > k.quota {
		return fmt.Errorf("storage: write of %d bytes: %w", incoming, apperr.ErrQuotaExceeded)
	}
	return nil
}
