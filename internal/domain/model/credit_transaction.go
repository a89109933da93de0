package model

import (
	"time"

	"notes-credit-ledger/internal/domain"
)

type TransactionType string

const (
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypeDeduct   TransactionType = "deduct"
	TransactionTypeRefund   TransactionType = "refund"
	TransactionTypeBonus    TransactionType = "bonus"
)

// CreditTransaction is one immutable ledger entry. Amount is always stored
// positive; the sign of the movement is implied by Type. BalanceBefore and
// BalanceAfter refer to the affected subscription's balance only, so the log
// of any one subscription replays to its current MinutesConsumed.
type CreditTransaction struct {
	ID             string // ULID, lexicographically ordered by creation time
	UserID         string
	SubscriptionID string // empty when the movement is not tied to one subscription
	NoteID         string // empty when the movement is not tied to a note
	Type           TransactionType
	Amount         Minutes
	BalanceBefore  Minutes
	BalanceAfter   Minutes
	Description    string
	CreatedAt      time.Time
}

// NewCreditTransaction validates and constructs a ledger entry.
func NewCreditTransaction(id, userID, subscriptionID, noteID string, typ TransactionType, amount, before, after Minutes, description string) (*CreditTransaction, error) {
	if id == "" || userID == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	switch typ {
	case TransactionTypePurchase, TransactionTypeDeduct, TransactionTypeRefund, TransactionTypeBonus:
	default:
		return nil, domain.ErrInvalidArgument
	}
	return &CreditTransaction{
		ID:             id,
		UserID:         userID,
		SubscriptionID: subscriptionID,
		NoteID:         noteID,
		Type:           typ,
		Amount:         amount,
		BalanceBefore:  before,
		BalanceAfter:   after,
		Description:    description,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Replay applies the entry to a running balance of consumed minutes.
// Replaying a subscription's entries in creation order from zero must
// reproduce its current MinutesConsumed exactly.
func (t *CreditTransaction) Replay(consumed Minutes) Minutes {
	switch t.Type {
	case TransactionTypeDeduct:
		return consumed + t.Amount
	case TransactionTypeRefund:
		return consumed - t.Amount
	default:
		// purchase and bonus change the grant, not the consumed counter
		return consumed
	}
}
