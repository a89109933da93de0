package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"notes-credit-ledger/internal/domain/ports/repository"
	"notes-credit-ledger/internal/infra/metrics"
	"notes-credit-ledger/internal/usecase"
)

// ExpiryWorker periodically finishes expired subscriptions via the use case
// and refreshes the subscription gauges.
type ExpiryWorker struct {
	interval time.Duration
	subUC    *usecase.SubscriptionUseCase
	subs     repository.SubscriptionRepository
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, subs repository.SubscriptionRepository, subUC *usecase.SubscriptionUseCase, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		subUC:    subUC,
		subs:     subs,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.subUC.FinishExpired(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry worker error")
			}
			if n > 0 {
				metrics.IncSubscriptionsExpired(n)
				w.log.Info().Int("count", n).Msg("expired subscriptions finished")
			}
			w.refreshGauges(ctx)
		}
	}
}

func (w *ExpiryWorker) refreshGauges(ctx context.Context) {
	counts, err := w.subs.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		w.log.Error().Err(err).Msg("count by status failed")
	} else {
		metrics.SetSubscriptionsTotal(counts)
	}
	remaining, err := w.subs.TotalRemainingMinutes(ctx, repository.NoTX)
	if err != nil {
		w.log.Error().Err(err).Msg("total remaining minutes failed")
	} else {
		metrics.SetRemainingMinutes(remaining)
	}
}
