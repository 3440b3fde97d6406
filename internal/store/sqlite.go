package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tartampluch/go-cardology/internal/config"
	_ "modernc.org/sqlite"
)

const (
	sqliteDSNOptions = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`

	sqliteSelect = `SELECT value FROM kv WHERE key = ?`

	sqliteUpsert = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
)

// SQLitePersistence stores blobs in a key/value table. A Save is one transaction.
type SQLitePersistence struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLitePersistence, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New(config.ErrDataDirEmpty)
	}

	db, err := sql.Open(config.SQLiteDriver, filepath.Clean(path)+sqliteDSNOptions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSQLiteOpen, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrSQLiteOpen, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrSQLiteSchema, err)
	}
	return &SQLitePersistence{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLitePersistence) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLitePersistence) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, sqliteSelect, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *SQLitePersistence) Save(ctx context.Context, blobs map[string][]byte) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	keys := make([]string, 0, len(blobs))
	for k := range blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, k := range keys {
		if _, err = tx.ExecContext(ctx, sqliteUpsert, k, blobs[k], now); err != nil {
			return err
		}
	}
	return tx.Commit()
}
