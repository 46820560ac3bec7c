// Package sqlite stores ledger books and matching rules in a single SQLite
// file for single-user deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const backend = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS ledger_books (
	storage_key TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	document    TEXT NOT NULL,
	checksum    TEXT NOT NULL,
	modified_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS matching_rules (
	id            TEXT PRIMARY KEY,
	category_code TEXT NOT NULL,
	rule_json     TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
`

// Open opens the database at path and creates the schema. Use ":memory:" for
// a throwaway database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return db, nil
}

// withTx runs fn in a transaction.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
