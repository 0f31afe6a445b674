// Package dedup is a small SQLite-backed record of processed webhook
// deliveries. Notion redelivers events on non-2xx responses (and sometimes
// on 2xx), and the page writer is not idempotent, so without this guard a
// redelivered event creates a duplicate page.
//
// The store is optional: with no state path configured the service runs
// without it and the duplicate-page limitation applies.
package dedup

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

// Store records which event deliveries have already been handled.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the SQLite database at path and ensures
// the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if _, err := db.ExecContext(pctx, `
CREATE TABLE IF NOT EXISTS processed_events (
  key          TEXT PRIMARY KEY,
  page_id      TEXT NOT NULL,
  event_type   TEXT NOT NULL,
  processed_at TEXT NOT NULL
);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create processed_events table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key derives the idempotency key for a delivery. Hashing keeps arbitrary
// id formats out of the primary key and makes the key length uniform.
func Key(pageID, eventType string) string {
	h := blake3.New()
	h.Write([]byte(pageID))
	h.Write([]byte{'\n'})
	h.Write([]byte(eventType))
	return hex.EncodeToString(h.Sum(nil))
}

// MarkIfNew records the key and reports whether it was unseen. A false
// return means the same delivery was already handled and the pipeline should
// skip it.
func (s *Store) MarkIfNew(ctx context.Context, key, pageID, eventType string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `
INSERT INTO processed_events(key, page_id, event_type, processed_at)
VALUES(?, ?, ?, ?)
ON CONFLICT(key) DO NOTHING;
`, key, pageID, eventType, now)
	if err != nil {
		return false, fmt.Errorf("mark event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark event: %w", err)
	}
	return n == 1, nil
}

// Forget removes a key so a failed run can be retried by redelivery.
func (s *Store) Forget(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM processed_events WHERE key = ?;`, key); err != nil {
		return fmt.Errorf("forget event: %w", err)
	}
	return nil
}
