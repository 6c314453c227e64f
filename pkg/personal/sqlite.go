package personal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SQLiteBackend stores the snapshot in a single table keyed by (word, next).
type SQLiteBackend struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// OpenSQLite opens or creates the database at path and applies migrations.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}
	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS frequencies (
			word TEXT NOT NULL,
			next TEXT NOT NULL DEFAULT '',
			count INTEGER NOT NULL,
			PRIMARY KEY (word, next)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_frequencies_count ON frequencies(count);`,
	}
	for _, stmt := range stmts {
		if _, err := b.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (b *SQLiteBackend) PutAll(ctx context.Context, entries []Entry) (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBackendClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM frequencies`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO frequencies (word, next, count) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err = stmt.ExecContext(ctx, e.Word, e.Next, int64(e.Count)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (b *SQLiteBackend) Enumerate(ctx context.Context, fn func(Entry) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBackendClosed
	}

	rows, err := b.db.QueryContext(ctx, `SELECT word, next, count FROM frequencies ORDER BY word, next`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var e Entry
		var count int64
		if err := rows.Scan(&e.Word, &e.Next, &count); err != nil {
			return err
		}
		if count < 0 {
			continue
		}
		e.Count = uint32(min(count, int64(^uint32(0))))
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (b *SQLiteBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}
