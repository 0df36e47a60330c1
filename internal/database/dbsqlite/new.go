package dbsqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // driver
)

// Store keeps blocks and tweaks in two tables of a single sqlite file.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	err := os.MkdirAll(filepath.Dir(path), 0750)
	if err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}

	dsn := "file:" + path +
		"?_txlock=immediate" + // BEGIN IMMEDIATE-style txns
		"&_pragma=foreign_keys(ON)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// the indexer is the only writer, a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS blocks (
  height     INTEGER PRIMARY KEY,
  hash       TEXT    NOT NULL UNIQUE,
  has_tweaks INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tweaks (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  block_hash TEXT NOT NULL REFERENCES blocks(hash),
  tx_id      TEXT NOT NULL,
  tweak      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS ix_tweaks_block_hash ON tweaks(block_hash);
`
