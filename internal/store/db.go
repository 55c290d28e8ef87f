package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/cesargomez89/archivebackup/internal/domain"
)

type DB struct {
	*sqlx.DB
}

// Per-connection pragmas have to travel in the DSN so that every pooled
// connection gets them. Units of work read before they write, so they take
// the write lock at BEGIN where busy_timeout still applies.
const dsnPragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(30000)&_time_format=sqlite&_txlock=immediate"

func NewSQLiteDB(dsn string) (*DB, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	db, err := sqlx.Open("sqlite", dsn+sep+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// UnitOfWork is an explicit transaction owned by the caller, which decides
// whether to Commit or Rollback.
type UnitOfWork struct {
	tx *sqlx.Tx
}

func (db *DB) Begin(ctx context.Context) (*UnitOfWork, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &UnitOfWork{tx: tx}, nil
}

func (u *UnitOfWork) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

// Rollback is a no-op after Commit, so it can always be deferred.
func (u *UnitOfWork) Rollback() error {
	err := u.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// classify maps SQLite constraint violations to domain.ErrIntegrityConflict.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "FOREIGN KEY constraint failed") ||
		strings.Contains(msg, "NOT NULL constraint failed") {
		return fmt.Errorf("%w: %v", domain.ErrIntegrityConflict, err)
	}
	return err
}
