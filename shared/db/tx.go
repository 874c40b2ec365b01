package db

import (
	"context"
	"database/sql"
	"fmt"
)

type txKey struct{}

// WithTx attaches tx to ctx so nested repository calls join it
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFrom returns the transaction carried by ctx, if any
func TxFrom(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// ExecutorFor returns the transaction in ctx, or conn when there is none
func ExecutorFor(ctx context.Context, conn *sql.DB) Executor {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	return conn
}

// RunInTx runs fn inside a transaction. When ctx already carries one, fn joins
// it and the outer caller decides whether to commit.
func RunInTx(ctx context.Context, conn *sql.DB, fn func(ctx context.Context) error) error {
	if _, ok := TxFrom(ctx); ok {
		return fn(ctx)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction after error %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
