package model

import (
	"time"

	"notes-credit-ledger/internal/domain"
)

// Plan represents a purchasable subscription plan: a fixed duration, a grant
// of processing minutes, and a price in IRR.
type Plan struct {
	ID           string
	Name         string
	DurationDays int
	MaxMinutes   Minutes
	MaxNotebooks int
	PriceIRR     int64
	IsActive     bool
	CreatedAt    time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs a plan.
func NewPlan(id, name string, durationDays int, maxMinutes Minutes, maxNotebooks int, priceIRR int64) (*Plan, error) {
	if id == "" || name == "" || durationDays <= 0 || maxMinutes < 0 || priceIRR < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:           id,
		Name:         name,
		DurationDays: durationDays,
		MaxMinutes:   maxMinutes,
		MaxNotebooks: maxNotebooks,
		PriceIRR:     priceIRR,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
