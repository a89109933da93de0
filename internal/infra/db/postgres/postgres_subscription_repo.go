package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"notes-credit-ledger/internal/domain"
	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.UserSubscription) error {
	const q = `
INSERT INTO user_subscriptions (
  id, user_id, plan_id, start_at, end_at, minutes_consumed, max_minutes, status, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  start_at=$4, end_at=$5, minutes_consumed=$6, max_minutes=$7, status=$8;`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.PlanID, s.StartAt, s.EndAt,
		int64(s.MinutesConsumed), int64(s.MaxMinutes), string(s.Status), s.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.UserSubscription, error) {
	const q = `
SELECT id, user_id, plan_id, start_at, end_at, minutes_consumed, max_minutes, status, created_at
  FROM user_subscriptions
 WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSub(row)
}

// FindQualifying runs inside the ledger's locked transaction when tx is set,
// so the rows it returns are stable for the duration of the deduction.
func (r *subscriptionRepo) FindQualifying(ctx context.Context, tx repository.Tx, userID string, now time.Time) ([]*model.UserSubscription, error) {
	const q = `
SELECT id, user_id, plan_id, start_at, end_at, minutes_consumed, max_minutes, status, created_at
  FROM user_subscriptions
 WHERE user_id=$1 AND status='active' AND end_at > $2
 ORDER BY end_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, now)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.UserSubscription
	for rows.Next() {
		s, err := scanSub(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *subscriptionRepo) MarkExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `
UPDATE user_subscriptions
   SET status='expired'
 WHERE status='active' AND end_at <= $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return int(tag.RowsAffected()), nil
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM user_subscriptions GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	counts := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		counts[model.SubscriptionStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return counts, nil
}

func (r *subscriptionRepo) TotalRemainingMinutes(ctx context.Context, tx repository.Tx) (model.Minutes, error) {
	const q = `
SELECT COALESCE(SUM(GREATEST(max_minutes - minutes_consumed, 0)), 0)
  FROM user_subscriptions
 WHERE status='active' AND end_at > NOW();`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return model.Minutes(n), nil
}

func scanSub(row pgx.Row) (*model.UserSubscription, error) {
	s := &model.UserSubscription{}
	var status string
	var consumed, max int64
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.StartAt, &s.EndAt, &consumed, &max, &status, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.MinutesConsumed = model.Minutes(consumed)
	s.MaxMinutes = model.Minutes(max)
	s.Status = model.SubscriptionStatus(status)
	return s, nil
}
