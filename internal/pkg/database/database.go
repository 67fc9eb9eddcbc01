package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps the agent's private SQLite database. The store lives next to the
// app, survives restarts and is never shared across processes.
type DB struct {
	*sql.DB

	initOnce sync.Once
	initErr  error
}

// NewSQLiteDB opens (creating if needed) the database at path and applies
// the schema. Use ":memory:" for tests.
func NewSQLiteDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent loops and keeps :memory: databases
	// visible to every caller.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db := &DB{DB: sqlDB}
	if err := db.Initialize(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// Initialize applies the schema. Idempotent and safe to call concurrently;
// exactly one schema-creation pass runs.
func (db *DB) Initialize() error {
	db.initOnce.Do(func() {
		if _, err := db.Exec(schemaSQL); err != nil {
			db.initErr = fmt.Errorf("apply schema: %w", err)
		}
	})
	return db.initErr
}

// WithTx executes fn inside a transaction. Whole-scope cache replacement and
// other multi-statement writes go through here so an interruption never
// leaves a partial mix of old and new rows.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback error: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
