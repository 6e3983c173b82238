package scoring

import (
	"fmt"
	"math"
)

// Stakeholder is one party whose utility is a weighted sum over the
// outcome vector. Weights may be negative and need not cover every metric;
// a missing weight contributes nothing. Color is for display only.
type Stakeholder struct {
	Name    string             `json:"name"`
	Weights map[string]float64 `json:"weights"`
	Color   string             `json:"color,omitempty"`
}

// StakeholderSpec is the plain record a Stakeholder is built from.
type StakeholderSpec struct {
	Name    string
	Weights map[string]float64
	Color   string
}

// Contribution captures one metric's share of a stakeholder's utility.
type Contribution struct {
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// Utility computes Σ weight[m] * outcome[m] over the metrics in outcome.
func (s Stakeholder) Utility(outcome OutcomeVector) float64 {
	var total float64
	for _, m := range outcome.keys() {
		total += s.Weights[m] * outcome[m]
	}
	return total
}

// Explain breaks Utility down per metric, in the same order it is summed.
func (s Stakeholder) Explain(outcome OutcomeVector) []Contribution {
	keys := outcome.keys()
	out := make([]Contribution, 0, len(keys))
	for _, m := range keys {
		w := s.Weights[m]
		out = append(out, Contribution{
			Metric:   m,
			Value:    outcome[m],
			Weight:   w,
			Weighted: w * outcome[m],
		})
	}
	return out
}

// NewStakeholders builds stakeholders from specs, preserving order. Names
// must be non-empty and unique; weights must be finite. Weight maps are
// copied so later changes to the specs have no effect.
func NewStakeholders(specs []StakeholderSpec) ([]Stakeholder, error) {
	seen := make(map[string]bool, len(specs))
	out := make([]Stakeholder, 0, len(specs))
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("stakeholder %d: name required", i)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("stakeholder %q: duplicate name", spec.Name)
		}
		seen[spec.Name] = true

		weights := make(map[string]float64, len(spec.Weights))
		for m, w := range spec.Weights {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("stakeholder %q: weight %q is not finite", spec.Name, m)
			}
			weights[m] = w
		}
		out = append(out, Stakeholder{Name: spec.Name, Weights: weights, Color: spec.Color})
	}
	return out, nil
}

// UnknownMetrics returns weight keys that name no outcome metric. Such
// weights are legal but never contribute.
func (s Stakeholder) UnknownMetrics() []string {
	var out []string
	for m := range s.Weights {
		if !IsMetric(m) {
			out = append(out, m)
		}
	}
	return out
}

// DefaultStakeholderSpecs returns the four standard stakeholder groups.
func DefaultStakeholderSpecs() []StakeholderSpec {
	return []StakeholderSpec{
		{
			Name:  "user",
			Color: "blue",
			Weights: map[string]float64{
				MetricRelevance:  0.6,
				MetricDiversity:  0.2,
				MetricEngagement: 0.2,
			},
		},
		{
			Name:  "creator",
			Color: "orange",
			Weights: map[string]float64{
				MetricExposure:  0.8,
				MetricDiversity: 0.2,
			},
		},
		{
			Name:  "platform",
			Color: "green",
			Weights: map[string]float64{
				MetricEngagement: 0.7,
				MetricRelevance:  0.3,
			},
		},
		{
			Name:  "society",
			Color: "red",
			Weights: map[string]float64{
				MetricDiversity:      0.6,
				MetricMisinformation: -1.0,
				MetricPolarization:   -0.8,
			},
		},
	}
}

// DefaultStakeholders builds the standard stakeholder set.
func DefaultStakeholders() []Stakeholder {
	s, _ := NewStakeholders(DefaultStakeholderSpecs())
	return s
}
