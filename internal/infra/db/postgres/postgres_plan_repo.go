package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"notes-credit-ledger/internal/domain"
	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/repository"
)

// Ensure planRepo implements repository.PlanRepository
var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	const q = `
INSERT INTO plans (id, name, duration_days, max_minutes, max_notebooks, price_irr, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  name=$2, duration_days=$3, max_minutes=$4, max_notebooks=$5, price_irr=$6, is_active=$7;`

	_, err := execSQL(ctx, r.pool, tx, q,
		plan.ID, plan.Name, plan.DurationDays, int64(plan.MaxMinutes),
		plan.MaxNotebooks, plan.PriceIRR, plan.IsActive, plan.CreatedAt)
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

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	const q = `
SELECT id, name, duration_days, max_minutes, max_notebooks, price_irr, is_active, created_at
  FROM plans
 WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *planRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	const q = `
SELECT id, name, duration_days, max_minutes, max_notebooks, price_irr, is_active, created_at
  FROM plans
 WHERE is_active
 ORDER BY price_irr ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	p := &model.Plan{}
	var maxMinutes int64
	if err := row.Scan(&p.ID, &p.Name, &p.DurationDays, &maxMinutes, &p.MaxNotebooks, &p.PriceIRR, &p.IsActive, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.MaxMinutes = model.Minutes(maxMinutes)
	return p, nil
}
