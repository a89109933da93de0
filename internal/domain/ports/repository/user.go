package repository

import (
	"context"

	"notes-credit-ledger/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
}
