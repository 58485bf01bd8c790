package cache

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	key TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLiteStorage keeps values in an embedded SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLiteStorage opens or creates the database at path.
func OpenSQLiteStorage(path string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageError(err, "open_db", path)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageError(err, "open_db", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, storageError(err, "open_db", path)
	}
	return &SQLiteStorage{db: db}, nil
}

// Get returns the value under key.
func (s *SQLiteStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM snapshots WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageError(err, "read", key)
	}
	return data, true, nil
}

// Put replaces the value under key.
func (s *SQLiteStorage) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (key, data, updated_at) VALUES (?, ?, ?)`,
		key, data, time.Now().UnixMilli(),
	)
	return storageError(err, "write", key)
}

// Delete removes key.
func (s *SQLiteStorage) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE key = ?", key)
	return storageError(err, "delete", key)
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
