// File: internal/usecase/balance_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/repository"
)

// Balance is a user's aggregated credit position across all currently-active
// subscriptions. Breakdown is ordered by end date ascending, which is also
// the order the ledger consumes from, so callers can predict deduction
// behavior from this call alone.
type Balance struct {
	Total     model.Minutes         `json:"total_minutes"`
	Breakdown []SubscriptionBalance `json:"subscriptions"`
}

type SubscriptionBalance struct {
	SubscriptionID string        `json:"subscription_id"`
	PlanID         string        `json:"plan_id"`
	Remaining      model.Minutes `json:"remaining_minutes"`
	EndAt          time.Time     `json:"end_at"`
}

// BalanceCache is an optional read-side cache for display balances. The
// ledger invalidates it on every credit movement.
type BalanceCache interface {
	Get(ctx context.Context, userID string) (*Balance, bool)
	Set(ctx context.Context, userID string, b *Balance)
	Invalidate(ctx context.Context, userID string)
}

// BalanceUseCase computes balances. It is read-only and takes no lock: a
// result may be slightly stale relative to a concurrent deduction, which is
// acceptable for display. The ledger re-validates at deduction time.
type BalanceUseCase struct {
	subRepo repository.SubscriptionRepository
	cache   BalanceCache
	log     *zerolog.Logger
}

func NewBalanceUseCase(subRepo repository.SubscriptionRepository, cache BalanceCache, logger *zerolog.Logger) *BalanceUseCase {
	l := logger.With().Str("component", "BalanceUseCase").Logger()
	return &BalanceUseCase{subRepo: subRepo, cache: cache, log: &l}
}

// Balance aggregates remaining minutes over subscriptions that are active
// AND not past their end date. The end-date filter is applied at read time
// even though an expiry worker also maintains the status column, so a stale
// status never inflates a displayed balance.
func (uc *BalanceUseCase) Balance(ctx context.Context, userID string) (*Balance, error) {
	if uc.cache != nil {
		if b, ok := uc.cache.Get(ctx, userID); ok {
			return b, nil
		}
	}
	subs, err := uc.subRepo.FindQualifying(ctx, repository.NoTX, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	b := &Balance{Breakdown: make([]SubscriptionBalance, 0, len(subs))}
	for _, s := range subs {
		rem := s.Remaining()
		b.Total += rem
		b.Breakdown = append(b.Breakdown, SubscriptionBalance{
			SubscriptionID: s.ID,
			PlanID:         s.PlanID,
			Remaining:      rem,
			EndAt:          s.EndAt,
		})
	}
	if uc.cache != nil {
		uc.cache.Set(ctx, userID, b)
	}
	return b, nil
}
