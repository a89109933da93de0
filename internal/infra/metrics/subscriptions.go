package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"notes-credit-ledger/internal/domain/model"
)

func init() {
	register(
		subscriptionsExpiredTotal,
		subscriptionsTotal,
		remainingMinutesTotal,
	)
}

var (
	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of subscriptions processed by the expiry worker.",
		},
	)

	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscriptions_total",
			Help: "Current number of subscriptions by status.",
		},
		[]string{"status"}, // 'active', 'expired', 'cancelled'
	)

	remainingMinutesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "remaining_minutes_total",
			Help: "Outstanding credit minutes across all active subscriptions.",
		},
	)
)

func IncSubscriptionsExpired(count int) {
	subscriptionsExpiredTotal.Add(float64(count))
}

func SetSubscriptionsTotal(counts map[model.SubscriptionStatus]int) {
	statuses := []model.SubscriptionStatus{
		model.SubscriptionStatusActive,
		model.SubscriptionStatusExpired,
		model.SubscriptionStatusCancelled,
	}
	for _, status := range statuses {
		if count, ok := counts[status]; ok {
			subscriptionsTotal.WithLabelValues(string(status)).Set(float64(count))
		}
	}
}

func SetRemainingMinutes(m model.Minutes) {
	remainingMinutesTotal.Set(m.Float64())
}
