package repository

import (
	"context"

	"notes-credit-ledger/internal/domain/model"
)

// CreditTransactionRepository is the port for the append-only transaction
// log. Entries are never updated or deleted.
type CreditTransactionRepository interface {
	Save(ctx context.Context, tx Tx, t *model.CreditTransaction) error

	// ListByUser returns the user's transactions, newest first.
	ListByUser(ctx context.Context, tx Tx, userID string, limit, offset int) ([]*model.CreditTransaction, error)

	// ListDeductsByNote returns the deduct entries recorded for (user, note),
	// newest first. Refund reverses exactly these.
	ListDeductsByNote(ctx context.Context, tx Tx, userID, noteID string) ([]*model.CreditTransaction, error)

	// ListBySubscription returns all entries that touched a subscription in
	// creation order, oldest first. Replaying them from zero must reproduce
	// the subscription's MinutesConsumed.
	ListBySubscription(ctx context.Context, tx Tx, subscriptionID string) ([]*model.CreditTransaction, error)
}
