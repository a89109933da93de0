package postgres

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"notes-credit-ledger/internal/domain"
	"notes-credit-ledger/internal/domain/ports/repository"
)

// Ensure compile-time conformance
var _ repository.TransactionManager = (*TxManager)(nil)

// pgLockNotAvailable is raised when lock_timeout fires while waiting on the
// advisory lock.
const pgLockNotAvailable = "55P03"

// TxManager implements repository.TransactionManager for Postgres (pgx).
// It begins a transaction, invokes the callback, and commits/rolls back.
// The tx handle is passed to the callback via the `tx` argument (as pgx.Tx).
type TxManager struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewTxManager(pool *pgxpool.Pool, lockTimeout time.Duration) *TxManager {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &TxManager{pool: pool, lockTimeout: lockTimeout}
}

// WithTx opens a DB transaction and passes the tx handle to fn.
// If fn returns an error, the transaction is rolled back; otherwise it is committed.
func (m *TxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx, err := m.pool.BeginTx(ctx, txOpt)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, tx); err != nil {
		return err // rollback in defer
	}
	return tx.Commit(ctx)
}

// WithUserLock opens a transaction and takes pg_advisory_xact_lock on a key
// derived from the user ID before invoking fn. The advisory lock serializes
// all balance-mutating work for one user across every process sharing the
// database, and is released automatically at commit or rollback. Waiting
// longer than the configured lock timeout fails with domain.ErrLockTimeout.
func (m *TxManager) WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context, tx repository.Tx) error) error {
	if userID == "" {
		return domain.ErrInvalidArgument
	}
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET LOCAL does not accept bind parameters; the value is our own config.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockTimeout.Milliseconds())); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userLockKey(userID)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
			return domain.ErrLockTimeout
		}
		return err
	}

	if err := fn(ctx, tx); err != nil {
		return err // rollback in defer, releasing the lock
	}
	return tx.Commit(ctx)
}

// userLockKey maps a user ID onto the signed 64-bit advisory lock keyspace.
// A hash collision between two users only over-serializes; it never breaks
// correctness.
func userLockKey(userID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(userID))
	return int64(h.Sum64())
}
