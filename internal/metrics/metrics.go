package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Selection outcome label values.
const (
	OutcomeSelected  = "selected"
	OutcomePenalized = "penalized"
	OutcomeEmpty     = "empty"
	OutcomeError     = "error"
)

var (
	SelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "equilibrium_selections_total",
			Help: "Total slate selections by request source and outcome",
		},
		[]string{"source", "outcome"},
	)

	SelectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "equilibrium_selection_duration_seconds",
			Help:    "Time spent evaluating all candidates of one selection",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100us .. ~26s
		},
		[]string{"source"},
	)

	CandidatesEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "equilibrium_candidates_evaluated_total",
			Help: "Total candidate slates scored",
		},
	)

	FairnessPenalties = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "equilibrium_fairness_penalties_total",
			Help: "Selections whose winning slate carried the fairness penalty",
		},
	)

	SelectedWelfare = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "equilibrium_selected_welfare",
			Help:    "Welfare of the chosen slate",
			Buckets: welfareBuckets(),
		},
	)
)

// welfareBuckets spans both signs over several orders of magnitude, since
// welfare scales with the configured weights and the stakeholder count:
// ±0.01 .. ±655.36 in powers of 4, plus zero.
func welfareBuckets() []float64 {
	pos := prometheus.ExponentialBuckets(0.01, 4, 9)
	buckets := make([]float64, 0, 2*len(pos)+1)
	for i := len(pos) - 1; i >= 0; i-- {
		buckets = append(buckets, -pos[i])
	}
	buckets = append(buckets, 0)
	return append(buckets, pos...)
}

// RecordSelection records one finished selection. welfare is ignored unless
// outcome is selected or penalized.
func RecordSelection(source, outcome string, candidates int, welfare float64, d time.Duration) {
	SelectionsTotal.WithLabelValues(source, outcome).Inc()
	SelectionDuration.WithLabelValues(source).Observe(d.Seconds())
	CandidatesEvaluated.Add(float64(candidates))
	switch outcome {
	case OutcomePenalized:
		FairnessPenalties.Inc()
		SelectedWelfare.Observe(welfare)
	case OutcomeSelected:
		SelectedWelfare.Observe(welfare)
	}
}
