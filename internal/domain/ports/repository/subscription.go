package repository

import (
	"context"
	"time"

	"notes-credit-ledger/internal/domain/model"
)

// SubscriptionRepository is the port for user subscriptions.
//
// MinutesConsumed is mutated exclusively through Save calls made by the
// ledger inside its locked critical section; no other component writes it.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.UserSubscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.UserSubscription, error)

	// FindQualifying returns the user's subscriptions that can fund a
	// deduction at `now` (status active AND end date in the future), ordered
	// by end date ascending. This ordering is the consumption order.
	FindQualifying(ctx context.Context, tx Tx, userID string, now time.Time) ([]*model.UserSubscription, error)

	// MarkExpired flips active subscriptions whose end date has passed to
	// expired and returns how many rows changed. Balance exhaustion alone
	// never expires a subscription.
	MarkExpired(ctx context.Context, tx Tx, now time.Time) (int, error)

	// --- Statistics read-only methods ---
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
	TotalRemainingMinutes(ctx context.Context, tx Tx) (model.Minutes, error)
}
