// internal/core/db/tx.go
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

/*
 * Transactional read scope for grid requests.
 *
 * TxBoundary implements grid.Boundary: the miss path of a request (total
 * count, filtered count, page fetch) runs in one read-only transaction at
 * the configured isolation level. The transaction travels in the context;
 * Ext picks it up so every query of the request reads the same snapshot.
 *
 * Run always begins a new transaction, even when ctx already carries one.
 * The transaction commits when fn succeeds and rolls back otherwise.
 *
 * SQLite ignores the isolation level; PostgreSQL honours all four ANSI levels
 * and rejects the others.
 */

type txKey struct{}

// TxBoundary runs grid reads inside a database transaction.
type TxBoundary struct {
	db *sqlx.DB
}

func NewTxBoundary(db *sqlx.DB) *TxBoundary {
	return &TxBoundary{db: db}
}

// Run begins a read-only transaction at isolation and hands fn a context
// carrying it.
func (b *TxBoundary) Run(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error {
	tx, err := b.db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(WithTx(ctx, tx)); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WithTx returns a context carrying tx.
func WithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFrom returns the transaction carried by ctx, if any.
func TxFrom(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx, ok
}

// Ext returns the transaction carried by ctx, or db.
func Ext(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	return db
}
