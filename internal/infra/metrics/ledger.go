package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ledgerTransactionsTotal,
		ledgerMinutesMoved,
		ledgerInsufficientTotal,
		ledgerLockTimeoutsTotal,
	)
}

var (
	ledgerTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Ledger entries written, labeled by type.",
		},
		[]string{"type"}, // 'purchase', 'deduct', 'refund', 'bonus'
	)

	ledgerMinutesMoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_minutes_moved_total",
			Help: "Total credit minutes moved through the ledger, by type.",
		},
		[]string{"type"},
	)

	ledgerInsufficientTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_insufficient_credit_total",
			Help: "Deduction attempts rejected for insufficient credit.",
		},
	)

	ledgerLockTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_lock_timeouts_total",
			Help: "Ledger operations that timed out waiting on the per-user lock.",
		},
	)
)

// ObserveLedgerEntry records one written ledger entry. minutes is the amount
// in whole fractional minutes (e.g. 5.5), not the fixed-point representation.
func ObserveLedgerEntry(txnType string, minutes float64) {
	ledgerTransactionsTotal.WithLabelValues(norm(txnType)).Inc()
	ledgerMinutesMoved.WithLabelValues(norm(txnType)).Add(minutes)
}

func IncInsufficientCredit() { ledgerInsufficientTotal.Inc() }

func IncLockTimeout() { ledgerLockTimeoutsTotal.Inc() }
