package mypostgres

import (
	"context"
	"database/sql"
	"fmt"
)

type ctxTxKey struct {
	db *sql.DB
}

// Executor is satisfied by both *sql.DB and *sql.Tx.
type Executor interface {
	ExecContext(c context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(c context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(c context.Context, query string, args ...any) *sql.Row
}

// RunInTransaction joins a transaction already present in the context for the same database.
func RunInTransaction(c context.Context, db *sql.DB, f func(c context.Context) error) error {
	if InTransaction(c, db) {
		return f(c)
	}

	tx, err := db.BeginTx(c, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	err = f(context.WithValue(c, ctxTxKey{db: db}, tx))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

func InTransaction(c context.Context, db *sql.DB) bool {
	_, ok := c.Value(ctxTxKey{db: db}).(*sql.Tx)
	return ok
}

// ExecutorFromContext returns the transaction of the context or the database itself.
func ExecutorFromContext(c context.Context, db *sql.DB) Executor {
	if tx, ok := c.Value(ctxTxKey{db: db}).(*sql.Tx); ok {
		return tx
	}
	return db
}
