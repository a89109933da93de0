package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"notes-credit-ledger/internal/domain"
	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/repository"
)

// Ensure creditTransactionRepo implements repository.CreditTransactionRepository
var _ repository.CreditTransactionRepository = (*creditTransactionRepo)(nil)

// creditTransactionRepo persists the append-only ledger. There is no update
// or delete path: entries are immutable once written. IDs are ULIDs, so
// ordering by id is ordering by creation time.
type creditTransactionRepo struct {
	pool *pgxpool.Pool
}

func NewCreditTransactionRepo(pool *pgxpool.Pool) *creditTransactionRepo {
	return &creditTransactionRepo{pool: pool}
}

const txnColumns = `id, user_id, subscription_id, note_id, type, amount, balance_before, balance_after, description, created_at`

func (r *creditTransactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.CreditTransaction) error {
	const q = `
INSERT INTO credit_transactions (` + txnColumns + `)
VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,$6,$7,$8,$9,$10);`

	_, err := execSQL(ctx, r.pool, tx, q,
		t.ID, t.UserID, t.SubscriptionID, t.NoteID, string(t.Type),
		int64(t.Amount), int64(t.BalanceBefore), int64(t.BalanceAfter),
		t.Description, t.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domain.ErrAlreadyExists
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *creditTransactionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.CreditTransaction, error) {
	const q = `
SELECT ` + txnColumns + `
  FROM credit_transactions
 WHERE user_id=$1
 ORDER BY id DESC
 LIMIT $2 OFFSET $3;`
	return r.queryMany(ctx, tx, q, userID, limit, offset)
}

func (r *creditTransactionRepo) ListDeductsByNote(ctx context.Context, tx repository.Tx, userID, noteID string) ([]*model.CreditTransaction, error) {
	const q = `
SELECT ` + txnColumns + `
  FROM credit_transactions
 WHERE user_id=$1 AND note_id=$2 AND type='deduct'
 ORDER BY id DESC;`
	return r.queryMany(ctx, tx, q, userID, noteID)
}

func (r *creditTransactionRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.CreditTransaction, error) {
	const q = `
SELECT ` + txnColumns + `
  FROM credit_transactions
 WHERE subscription_id=$1
 ORDER BY id ASC;`
	return r.queryMany(ctx, tx, q, subscriptionID)
}

func (r *creditTransactionRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.CreditTransaction, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.CreditTransaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanTxn(row pgx.Row) (*model.CreditTransaction, error) {
	t := &model.CreditTransaction{}
	var typ string
	var subID, noteID *string
	var amount, before, after int64
	if err := row.Scan(&t.ID, &t.UserID, &subID, &noteID, &typ, &amount, &before, &after, &t.Description, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if subID != nil {
		t.SubscriptionID = *subID
	}
	if noteID != nil {
		t.NoteID = *noteID
	}
	t.Type = model.TransactionType(typ)
	t.Amount = model.Minutes(amount)
	t.BalanceBefore = model.Minutes(before)
	t.BalanceAfter = model.Minutes(after)
	return t, nil
}
