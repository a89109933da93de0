package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager provides a thin abstraction to execute a function within
// a database transaction, passing the underlying transaction handle via `tx`.
//
// Repositories accept `tx Tx` and detect the concrete handle on the
// implementation side (pgx.Tx for Postgres); `nil` means non-transactional.
// Keep this interface small and stable.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error

	// WithUserLock runs fn inside a transaction that holds an exclusive
	// per-user lock for its whole duration. Concurrent calls for the same
	// user serialize; different users never block each other. Waiting longer
	// than the configured lock timeout fails with domain.ErrLockTimeout and
	// nothing is committed.
	WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context, tx Tx) error) error
}
