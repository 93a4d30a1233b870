package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// ErrConcurrentUpdate is returned when a guarded update matched no row because
// another transaction changed the record first.
var ErrConcurrentUpdate = errors.New("record was modified concurrently")

// TransactionManager manages database transactions via context injection.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

// RunInTx commits when fn returns nil and rolls back otherwise. Nested calls join the outer transaction.
func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}

// Savepoint runs fn inside a savepoint of the surrounding transaction, so a failed
// statement in fn is undone without poisoning the outer transaction. Outside a
// transaction fn runs directly.
func Savepoint(ctx context.Context, fn func(spCtx context.Context) error) error {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if !ok {
		return fn(ctx)
	}
	return tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey, sp))
	})
}

// InTx reports whether ctx carries an open transaction
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey).(*gorm.DB)
	return ok
}
