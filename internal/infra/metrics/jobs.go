package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(notesProcessedTotal, noteProcessingSeconds) }

var notesProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notes_processed_total",
		Help: "Total number of notes processed, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var noteProcessingSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "note_processing_seconds",
		Help:    "Wall time spent processing one note end to end.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	},
)

func IncNoteProcessed(status string) {
	notesProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveNoteProcessing(seconds float64) {
	noteProcessingSeconds.Observe(seconds)
}
