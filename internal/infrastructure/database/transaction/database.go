package transaction

import (
	"context"

	"gorm.io/gorm"
)

type TransactionContextKey struct{}

func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, TransactionContextKey{}, tx)
}

type Database struct {
	db *gorm.DB
}

// GetTx returns the transaction carried by ctx, or the base connection.
func (t *Database) GetTx(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TransactionContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return t.db
}

// Base returns the connection pool, ignoring any ambient transaction.
func (t *Database) Base() *gorm.DB {
	return t.db
}

// RunInTx runs fn in a transaction. When ctx already carries one, fn runs in a
// nested savepoint of the outer transaction.
func (t *Database) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.GetTx(ctx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx))
	})
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db}
}
