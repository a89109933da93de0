// File: internal/usecase/ledger_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"notes-credit-ledger/internal/domain"
	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/repository"
)

// RefundPolicy decides what happens when a refund request exceeds what was
// originally deducted for the note.
type RefundPolicy string

const (
	// RefundPolicyStrict fails the whole refund with
	// domain.ErrRefundExceedsDeduction. This is the default: silent clamping
	// hides caller bugs.
	RefundPolicyStrict RefundPolicy = "strict"
	// RefundPolicyClamp caps the refund at the originally-deducted amount.
	RefundPolicyClamp RefundPolicy = "clamp"
)

// CreditCheck is the advisory result of comparing a note's cost against the
// user's balance. It is racy by nature: the balance may change before the
// actual deduct, which remains the authoritative, race-free gate.
type CreditCheck struct {
	Required   model.Minutes `json:"required_minutes"`
	Available  model.Minutes `json:"available_minutes"`
	Sufficient bool          `json:"sufficient"`
}

// LedgerUseCase performs all credit movements: atomic deduction and refund
// against one or more subscriptions, purchase and bonus grants, and the
// transaction-history read. Every movement is recorded as an immutable
// CreditTransaction; a failed call commits nothing.
type LedgerUseCase struct {
	userRepo     repository.UserRepository
	subRepo      repository.SubscriptionRepository
	txnRepo      repository.CreditTransactionRepository
	tm           repository.TransactionManager
	cost         *CostUseCase
	balance      *BalanceUseCase
	cache        BalanceCache
	refundPolicy RefundPolicy
	log          *zerolog.Logger
}

func NewLedgerUseCase(
	userRepo repository.UserRepository,
	subRepo repository.SubscriptionRepository,
	txnRepo repository.CreditTransactionRepository,
	tm repository.TransactionManager,
	cost *CostUseCase,
	balance *BalanceUseCase,
	cache BalanceCache,
	refundPolicy RefundPolicy,
	logger *zerolog.Logger,
) *LedgerUseCase {
	if refundPolicy != RefundPolicyClamp {
		refundPolicy = RefundPolicyStrict
	}
	l := logger.With().Str("component", "LedgerUseCase").Logger()
	return &LedgerUseCase{
		userRepo:     userRepo,
		subRepo:      subRepo,
		txnRepo:      txnRepo,
		tm:           tm,
		cost:         cost,
		balance:      balance,
		cache:        cache,
		refundPolicy: refundPolicy,
		log:          &l,
	}
}

// Deduct withdraws amount minutes from the user's active subscriptions,
// soonest-expiring first, writing one deduct transaction per subscription
// touched. All-or-nothing: if the qualifying subscriptions cannot cover the
// full amount, nothing is written and nothing is mutated.
func (uc *LedgerUseCase) Deduct(ctx context.Context, userID string, amount model.Minutes, noteID, description string) ([]*model.CreditTransaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if err := uc.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if description == "" {
		description = fmt.Sprintf("processing note %s", noteID)
	}

	var out []*model.CreditTransaction
	err := uc.tm.WithUserLock(ctx, userID, func(ctx context.Context, tx repository.Tx) error {
		now := time.Now().UTC()
		// Re-fetch inside the locked section: any balance observed before the
		// lock is advisory only.
		subs, err := uc.subRepo.FindQualifying(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		var available model.Minutes
		for _, s := range subs {
			available += s.Remaining()
		}
		if available < amount {
			uc.log.Warn().
				Str("user_id", userID).Str("note_id", noteID).
				Str("required", amount.String()).Str("available", available.String()).
				Msg("deduct rejected: insufficient credit")
			return domain.ErrInsufficientCredit
		}

		owed := amount
		for _, s := range subs {
			if owed == 0 {
				break
			}
			draw := s.Remaining()
			if draw == 0 {
				continue
			}
			if draw > owed {
				draw = owed
			}
			before := s.Remaining()
			s.MinutesConsumed += draw
			if err := uc.subRepo.Save(ctx, tx, s); err != nil {
				return err
			}
			txn, err := model.NewCreditTransaction(
				ulid.Make().String(), userID, s.ID, noteID,
				model.TransactionTypeDeduct, draw, before, s.Remaining(), description,
			)
			if err != nil {
				return err
			}
			if err := uc.txnRepo.Save(ctx, tx, txn); err != nil {
				return err
			}
			out = append(out, txn)
			owed -= draw
		}
		if owed != 0 {
			// Unreachable when the availability check above held; kept as a
			// hard stop so a logic regression rolls back instead of
			// part-charging.
			return domain.ErrOperationFailed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx, userID)
	uc.log.Info().
		Str("user_id", userID).Str("note_id", noteID).
		Str("amount", amount.String()).Int("subscriptions", len(out)).
		Msg("credit deducted")
	return out, nil
}

// Refund reverses a prior deduction for (user, note). It walks the note's
// deduct transactions newest first and restores minutes to the exact
// subscriptions they were drawn from, never more per subscription than that
// subscription originally funded. Refunding into a subscription that never
// funded the charge is therefore impossible.
func (uc *LedgerUseCase) Refund(ctx context.Context, userID string, amount model.Minutes, noteID, description string) ([]*model.CreditTransaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if err := uc.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if description == "" {
		description = fmt.Sprintf("refund for note %s", noteID)
	}

	var out []*model.CreditTransaction
	err := uc.tm.WithUserLock(ctx, userID, func(ctx context.Context, tx repository.Tx) error {
		deducts, err := uc.txnRepo.ListDeductsByNote(ctx, tx, userID, noteID)
		if err != nil {
			return err
		}
		var deducted model.Minutes
		for _, d := range deducts {
			deducted += d.Amount
		}
		if amount > deducted {
			if uc.refundPolicy == RefundPolicyStrict {
				uc.log.Error().
					Str("user_id", userID).Str("note_id", noteID).
					Str("requested", amount.String()).Str("deducted", deducted.String()).
					Msg("refund exceeds prior deduction")
				return domain.ErrRefundExceedsDeduction
			}
			uc.log.Warn().
				Str("user_id", userID).Str("note_id", noteID).
				Str("requested", amount.String()).Str("deducted", deducted.String()).
				Msg("refund clamped to deducted amount")
			amount = deducted
		}

		remaining := amount
		for _, d := range deducts {
			if remaining == 0 {
				break
			}
			if d.SubscriptionID == "" {
				continue
			}
			sub, err := uc.subRepo.FindByID(ctx, tx, d.SubscriptionID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return err
			}
			give := d.Amount
			if give > remaining {
				give = remaining
			}
			// A subscription can never be refunded below zero consumed.
			if give > sub.MinutesConsumed {
				give = sub.MinutesConsumed
			}
			if give == 0 {
				continue
			}
			before := sub.Remaining()
			sub.MinutesConsumed -= give
			if err := uc.subRepo.Save(ctx, tx, sub); err != nil {
				return err
			}
			txn, err := model.NewCreditTransaction(
				ulid.Make().String(), userID, sub.ID, noteID,
				model.TransactionTypeRefund, give, before, sub.Remaining(), description,
			)
			if err != nil {
				return err
			}
			if err := uc.txnRepo.Save(ctx, tx, txn); err != nil {
				return err
			}
			out = append(out, txn)
			remaining -= give
		}
		if remaining > 0 {
			uc.log.Warn().
				Str("user_id", userID).Str("note_id", noteID).
				Str("unrefunded", remaining.String()).
				Msg("refund only partially applied; prior deductions exhausted")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx, userID)
	uc.log.Info().
		Str("user_id", userID).Str("note_id", noteID).
		Str("amount", amount.String()).Int("subscriptions", len(out)).
		Msg("credit refunded")
	return out, nil
}

// CheckRequiredCredit is the advisory pre-check used by the upload-time UI
// gate and the worker's first step. It never mutates state.
func (uc *LedgerUseCase) CheckRequiredCredit(ctx context.Context, userID, noteID string) (*CreditCheck, error) {
	if err := uc.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	required, err := uc.cost.NoteCost(ctx, noteID)
	if err != nil {
		return nil, err
	}
	bal, err := uc.balance.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CreditCheck{
		Required:   required,
		Available:  bal.Total,
		Sufficient: bal.Total >= required,
	}, nil
}

// GrantBonus raises a subscription's minute grant and records a bonus
// transaction. Used for administrative goodwill credits.
func (uc *LedgerUseCase) GrantBonus(ctx context.Context, userID, subscriptionID string, amount model.Minutes, description string) (*model.CreditTransaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if err := uc.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if description == "" {
		description = "bonus credit"
	}

	var out *model.CreditTransaction
	err := uc.tm.WithUserLock(ctx, userID, func(ctx context.Context, tx repository.Tx) error {
		sub, err := uc.subRepo.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.UserID != userID {
			return domain.ErrInvalidArgument
		}
		if sub.Status != model.SubscriptionStatusActive {
			return domain.ErrSubscriptionNotActive
		}
		before := sub.Remaining()
		sub.MaxMinutes += amount
		if err := uc.subRepo.Save(ctx, tx, sub); err != nil {
			return err
		}
		out, err = model.NewCreditTransaction(
			ulid.Make().String(), userID, sub.ID, "",
			model.TransactionTypeBonus, amount, before, sub.Remaining(), description,
		)
		if err != nil {
			return err
		}
		return uc.txnRepo.Save(ctx, tx, out)
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, userID)
	return out, nil
}

// Transactions returns the user's ledger history, newest first.
func (uc *LedgerUseCase) Transactions(ctx context.Context, userID string, limit, offset int) ([]*model.CreditTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return uc.txnRepo.ListByUser(ctx, repository.NoTX, userID, limit, offset)
}

func (uc *LedgerUseCase) requireUser(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrInvalidArgument
	}
	if _, err := uc.userRepo.FindByID(ctx, repository.NoTX, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}
	return nil
}

func (uc *LedgerUseCase) invalidate(ctx context.Context, userID string) {
	if uc.cache != nil {
		uc.cache.Invalidate(ctx, userID)
	}
}
