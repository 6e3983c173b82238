package scoring

import (
	"math"
	"sort"
)

// Outcome metric names.
const (
	MetricRelevance      = "relevance"
	MetricDiversity      = "diversity"
	MetricExposure       = "exposure"
	MetricEngagement     = "engagement"
	MetricMisinformation = "misinformation"
	MetricPolarization   = "polarization"
)

// Metrics lists the outcome metrics in canonical order.
var Metrics = []string{
	MetricRelevance,
	MetricDiversity,
	MetricExposure,
	MetricEngagement,
	MetricMisinformation,
	MetricPolarization,
}

// IsMetric reports whether name is a known outcome metric.
func IsMetric(name string) bool {
	for _, m := range Metrics {
		if m == name {
			return true
		}
	}
	return false
}

// OutcomeVector holds slate-level metrics keyed by metric name.
type OutcomeVector map[string]float64

// Finite reports whether every metric is a finite number.
func (o OutcomeVector) Finite() bool {
	for _, v := range o {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// keys returns the canonical metrics present in o followed by any other
// keys in lexical order, so float sums over o are reproducible.
func (o OutcomeVector) keys() []string {
	out := make([]string, 0, len(o))
	for _, m := range Metrics {
		if _, ok := o[m]; ok {
			out = append(out, m)
		}
	}
	var extra []string
	for k := range o {
		if !IsMetric(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Aggregate reduces a slate to its outcome vector. Every metric except
// diversity is the arithmetic mean of an item attribute. An empty slate
// yields all zeros.
func Aggregate(slate Slate) OutcomeVector {
	out := OutcomeVector{
		MetricRelevance:      0,
		MetricDiversity:      0,
		MetricExposure:       0,
		MetricEngagement:     0,
		MetricMisinformation: 0,
		MetricPolarization:   0,
	}
	if len(slate) == 0 {
		return out
	}

	// Each term is scaled before summing so finite attributes can never
	// overflow to an infinite mean.
	n := float64(len(slate))
	var relevance, exposure, engagement, misinfo, polarization float64
	for _, it := range slate {
		relevance += it.Relevance / n
		exposure += it.CreatorScore / n
		engagement += it.Engagement / n
		misinfo += it.Misinfo / n
		polarization += it.Polarization / n
	}

	out[MetricRelevance] = relevance
	out[MetricDiversity] = Diversity(slate)
	out[MetricExposure] = exposure
	out[MetricEngagement] = engagement
	out[MetricMisinformation] = misinfo
	out[MetricPolarization] = polarization
	return out
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
