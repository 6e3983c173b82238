package scoring

import (
	"testing"
)

func TestAggregateEmptySlate(t *testing.T) {
	out := Aggregate(nil)
	if len(out) != len(Metrics) {
		t.Fatalf("expected %d metrics, got %d", len(Metrics), len(out))
	}
	for _, m := range Metrics {
		v, ok := out[m]
		if !ok {
			t.Errorf("missing metric %s", m)
		}
		if v != 0 {
			t.Errorf("metric %s: expected 0, got %f", m, v)
		}
	}
	if !out.Finite() {
		t.Error("empty slate outcome must be finite")
	}
}

func TestAggregateMeans(t *testing.T) {
	slate := Slate{
		{Relevance: 0.8, CreatorScore: 0.2, Engagement: 0.5, Misinfo: 0.1, Polarization: 0.0, Category: "news"},
		{Relevance: 0.4, CreatorScore: 0.6, Engagement: 0.3, Misinfo: 0.3, Polarization: 0.6, Category: "sports"},
	}
	out := Aggregate(slate)

	want := map[string]float64{
		MetricRelevance:      0.6,
		MetricDiversity:      1.0,
		MetricExposure:       0.4,
		MetricEngagement:     0.4,
		MetricMisinformation: 0.2,
		MetricPolarization:   0.3,
	}
	for m, w := range want {
		if !approx(out[m], w) {
			t.Errorf("%s: got %f, want %f", m, out[m], w)
		}
	}
}

func TestAggregateMissingFieldsDefaultZero(t *testing.T) {
	slate := Slate{{Relevance: 1.0}, {}}
	out := Aggregate(slate)
	if !approx(out[MetricRelevance], 0.5) {
		t.Errorf("expected relevance 0.5, got %f", out[MetricRelevance])
	}
	if out[MetricEngagement] != 0 {
		t.Errorf("expected engagement 0, got %f", out[MetricEngagement])
	}
	// both items uncategorised
	if out[MetricDiversity] != 0 {
		t.Errorf("expected diversity 0, got %f", out[MetricDiversity])
	}
}

func TestAggregateOrderInsensitive(t *testing.T) {
	a := Slate{
		{Relevance: 0.1, Engagement: 0.9, Category: "x"},
		{Relevance: 0.5, Misinfo: 0.2, Category: "y|x"},
		{Relevance: 0.9, Polarization: 0.4, Category: "z"},
	}
	b := Slate{a[2], a[0], a[1]}

	oa, ob := Aggregate(a), Aggregate(b)
	for _, m := range Metrics {
		if !approx(oa[m], ob[m]) {
			t.Errorf("%s: %f != %f", m, oa[m], ob[m])
		}
	}
}

func TestOutcomeKeysCanonicalOrder(t *testing.T) {
	o := OutcomeVector{"zeta": 1, MetricPolarization: 1, MetricRelevance: 1, "alpha": 1}
	got := o.keys()
	want := []string{MetricRelevance, MetricPolarization, "alpha", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestAggregateHugeValuesStayFinite(t *testing.T) {
	slate := Slate{
		{Relevance: 1e308, CreatorScore: 1e308, Engagement: -1e308},
		{Relevance: 1e308, CreatorScore: 1e308, Engagement: -1e308},
	}
	out := Aggregate(slate)
	if !out.Finite() {
		t.Fatalf("outcome of finite items must be finite, got %v", out)
	}
	if out[MetricRelevance] != 1e308 {
		t.Errorf("expected relevance 1e308, got %g", out[MetricRelevance])
	}
	if out[MetricEngagement] != -1e308 {
		t.Errorf("expected engagement -1e308, got %g", out[MetricEngagement])
	}
}
