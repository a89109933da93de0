package model

import (
	"time"

	"notes-credit-ledger/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// UserSubscription is one purchase-period grant of minutes. MinutesConsumed
// grows monotonically while the subscription lives and is mutated only by the
// ledger under its locking discipline. Status is time-based: exhausting the
// balance does NOT expire a subscription, only the passage of EndAt does.
type UserSubscription struct {
	ID              string
	UserID          string
	PlanID          string
	StartAt         time.Time
	EndAt           time.Time
	MinutesConsumed Minutes
	MaxMinutes      Minutes // copied from the plan at activation
	Status          SubscriptionStatus
	CreatedAt       time.Time
}

// NewUserSubscription creates an active subscription from a plan, starting now.
func NewUserSubscription(id, userID string, plan *Plan) (*UserSubscription, error) {
	if id == "" || userID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &UserSubscription{
		ID:              id,
		UserID:          userID,
		PlanID:          plan.ID,
		StartAt:         now,
		EndAt:           now.Add(time.Duration(plan.DurationDays) * 24 * time.Hour),
		MinutesConsumed: 0,
		MaxMinutes:      plan.MaxMinutes,
		Status:          SubscriptionStatusActive,
		CreatedAt:       now,
	}, nil
}

// Remaining returns the unconsumed balance, floored at zero.
func (s *UserSubscription) Remaining() Minutes {
	r := s.MaxMinutes - s.MinutesConsumed
	if r < 0 {
		return 0
	}
	return r
}

// Qualifies reports whether the subscription can fund a deduction at t:
// status active and end date still in the future. The end-date check is
// deliberately re-done at read time even though the expiry worker also
// flips status, so a stale status row never funds a charge.
func (s *UserSubscription) Qualifies(t time.Time) bool {
	return s.Status == SubscriptionStatusActive && s.EndAt.After(t)
}
