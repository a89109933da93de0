// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"notes-credit-ledger/internal/domain"
	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/repository"
)

// SubscriptionUseCase manages subscription lifecycle. Activation sits outside
// the ledger proper but writes the purchase transaction that opens the
// subscription's history, so a ledger replay is complete from minute one.
type SubscriptionUseCase struct {
	userRepo repository.UserRepository
	planRepo repository.PlanRepository
	subRepo  repository.SubscriptionRepository
	txnRepo  repository.CreditTransactionRepository
	tm       repository.TransactionManager
	cache    BalanceCache
	log      *zerolog.Logger
}

func NewSubscriptionUseCase(
	userRepo repository.UserRepository,
	planRepo repository.PlanRepository,
	subRepo repository.SubscriptionRepository,
	txnRepo repository.CreditTransactionRepository,
	tm repository.TransactionManager,
	cache BalanceCache,
	logger *zerolog.Logger,
) *SubscriptionUseCase {
	l := logger.With().Str("component", "SubscriptionUseCase").Logger()
	return &SubscriptionUseCase{
		userRepo: userRepo,
		planRepo: planRepo,
		subRepo:  subRepo,
		txnRepo:  txnRepo,
		tm:       tm,
		cache:    cache,
		log:      &l,
	}
}

// Activate creates an active subscription from a plan after a payment
// completes, together with its purchase transaction (balance_before=0 for
// the new subscription), in one commit. A user may hold any number of
// concurrent subscriptions; each keeps its own expiry and balance.
func (uc *SubscriptionUseCase) Activate(ctx context.Context, userID, planID string) (*model.UserSubscription, error) {
	if _, err := uc.userRepo.FindByID(ctx, repository.NoTX, userID); err != nil {
		return nil, err
	}
	plan, err := uc.planRepo.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, domain.ErrInvalidArgument
	}

	sub, err := model.NewUserSubscription(uuid.NewString(), userID, plan)
	if err != nil {
		return nil, err
	}
	err = uc.tm.WithUserLock(ctx, userID, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.subRepo.Save(ctx, tx, sub); err != nil {
			return err
		}
		txn, err := model.NewCreditTransaction(
			ulid.Make().String(), userID, sub.ID, "",
			model.TransactionTypePurchase, plan.MaxMinutes, 0, plan.MaxMinutes,
			fmt.Sprintf("purchased plan %s", plan.Name),
		)
		if err != nil {
			return err
		}
		return uc.txnRepo.Save(ctx, tx, txn)
	})
	if err != nil {
		return nil, err
	}
	if uc.cache != nil {
		uc.cache.Invalidate(ctx, userID)
	}
	uc.log.Info().
		Str("user_id", userID).Str("plan_id", planID).Str("subscription_id", sub.ID).
		Str("minutes", plan.MaxMinutes.String()).
		Msg("subscription activated")
	return sub, nil
}

// Cancel administratively cancels a subscription. Its transaction history is
// kept; the row is never deleted while transactions reference it.
func (uc *SubscriptionUseCase) Cancel(ctx context.Context, subscriptionID string) error {
	sub, err := uc.subRepo.FindByID(ctx, repository.NoTX, subscriptionID)
	if err != nil {
		return err
	}
	err = uc.tm.WithUserLock(ctx, sub.UserID, func(ctx context.Context, tx repository.Tx) error {
		cur, err := uc.subRepo.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		cur.Status = model.SubscriptionStatusCancelled
		return uc.subRepo.Save(ctx, tx, cur)
	})
	if err != nil {
		return err
	}
	if uc.cache != nil {
		uc.cache.Invalidate(ctx, sub.UserID)
	}
	return nil
}

// FinishExpired marks subscriptions whose end date has passed as expired and
// returns how many were flipped. Expiry is time-based only: a subscription
// with an exhausted balance stays active until its end date.
func (uc *SubscriptionUseCase) FinishExpired(ctx context.Context) (int, error) {
	return uc.subRepo.MarkExpired(ctx, repository.NoTX, time.Now().UTC())
}

// CountByStatus delegates to the repo; used by the stats gauge.
func (uc *SubscriptionUseCase) CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error) {
	return uc.subRepo.CountByStatus(ctx, repository.NoTX)
}
