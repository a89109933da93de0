package repository

import (
	"context"

	"notes-credit-ledger/internal/domain/model"
)

// PlanRepository is the port for plan persistence.
type PlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Plan, error)
}
