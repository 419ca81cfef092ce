package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so repositories
// run the same queries inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, arguments ...interface{}) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type txContextKey struct{}

// SetTx stores a transaction in the context
func SetTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// GetTx retrieves the transaction stored in ctx, or nil.
func GetTx(ctx context.Context) pgx.Tx {
	tx, ok := ctx.Value(txContextKey{}).(pgx.Tx)
	if !ok {
		return nil
	}
	return tx
}

// InTx reports whether ctx already carries a transaction.
func InTx(ctx context.Context) bool {
	return GetTx(ctx) != nil
}

// TxFn is the unit of work handed to ExecTx. Repositories called with the
// ctx it receives run on the open transaction.
type TxFn func(ctx context.Context) error

// TransactionManager is used where several rows must change together, such
// as renumbering every scene of a project on reorder. An ExecTx inside
// another ExecTx reuses the outer transaction.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
