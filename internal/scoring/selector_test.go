package scoring

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// twoPartySelector builds stakeholders whose utilities are the item's
// relevance and engagement respectively, so a one-item slate maps directly
// to a chosen utility pair.
func twoPartySelector(t *testing.T, opts Options) *Selector {
	t.Helper()
	st, err := NewStakeholders([]StakeholderSpec{
		{Name: "a", Weights: map[string]float64{MetricRelevance: 1}},
		{Name: "b", Weights: map[string]float64{MetricEngagement: 1}},
	})
	if err != nil {
		t.Fatalf("NewStakeholders: %v", err)
	}
	return NewSelector(st, opts, discardLogger())
}

func pair(a, b float64) Slate {
	return Slate{{Relevance: a, Engagement: b}}
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	if o.FairnessThreshold != 0.4 {
		t.Errorf("expected threshold 0.4, got %f", o.FairnessThreshold)
	}
	if o.FairnessPenalty != 0.5 {
		t.Errorf("expected penalty 0.5, got %f", o.FairnessPenalty)
	}
	if o.Workers != 1 {
		t.Errorf("expected 1 worker, got %d", o.Workers)
	}
}

func TestFairnessPenalty(t *testing.T) {
	s := twoPartySelector(t, DefaultOptions())

	t.Run("lopsided utilities are penalised", func(t *testing.T) {
		ev := s.Evaluate(0, pair(10, 1))
		if !ev.Penalized {
			t.Fatal("expected penalty for utilities [10, 1]")
		}
		if !approx(ev.RawWelfare, 11) {
			t.Errorf("expected raw welfare 11, got %f", ev.RawWelfare)
		}
		if !approx(ev.Welfare, 5.5) {
			t.Errorf("expected welfare 5.5, got %f", ev.Welfare)
		}
	})

	t.Run("balanced utilities are not", func(t *testing.T) {
		ev := s.Evaluate(0, pair(6, 5))
		if ev.Penalized {
			t.Fatal("did not expect penalty for utilities [6, 5]")
		}
		if !approx(ev.Welfare, 11) {
			t.Errorf("expected welfare 11, got %f", ev.Welfare)
		}
	})

	t.Run("boundary is strict", func(t *testing.T) {
		// avg 5, min 2 == 0.4*5
		ev := s.Evaluate(0, pair(8, 2))
		if ev.Penalized {
			t.Error("min equal to threshold must not be penalised")
		}
	})

	t.Run("negative utilities use the literal comparison", func(t *testing.T) {
		// avg -2, 0.4*avg = -0.8, min -3 < -0.8
		ev := s.Evaluate(0, pair(-1, -3))
		if !ev.Penalized {
			t.Fatal("expected literal comparison to trigger")
		}
		if !approx(ev.Welfare, -2) {
			t.Errorf("expected welfare -2, got %f", ev.Welfare)
		}
	})

	t.Run("all zero", func(t *testing.T) {
		ev := s.Evaluate(0, pair(0, 0))
		if ev.Penalized {
			t.Error("0 < 0 is false, no penalty expected")
		}
	})
}

func TestSelectPrefersFairSlate(t *testing.T) {
	s := twoPartySelector(t, DefaultOptions())
	res := s.SelectOptimalSlate([]Slate{pair(10, 1), pair(6, 5)})

	if !res.Selected {
		t.Fatal("expected a selection")
	}
	if res.Index != 1 {
		t.Errorf("expected candidate 1, got %d", res.Index)
	}
	if !approx(res.Welfare, 11) {
		t.Errorf("expected welfare 11, got %f", res.Welfare)
	}
	if res.Penalized {
		t.Error("chosen slate should not be penalised")
	}
	if len(res.Utilities) != 2 || !approx(res.Utilities[0], 6) || !approx(res.Utilities[1], 5) {
		t.Errorf("unexpected utilities %v", res.Utilities)
	}
}

func TestSelectTieBreakFirstWins(t *testing.T) {
	s := twoPartySelector(t, DefaultOptions())
	res := s.SelectOptimalSlate([]Slate{pair(5, 5), pair(4, 6), pair(5, 5)})
	if res.Index != 0 {
		t.Errorf("expected first candidate on tie, got %d", res.Index)
	}

	res = s.SelectOptimalSlate([]Slate{pair(1, 1), pair(5, 5), pair(6, 4)})
	if res.Index != 1 {
		t.Errorf("expected candidate 1 on tie, got %d", res.Index)
	}
}

func TestSelectIdempotent(t *testing.T) {
	s := NewSelector(DefaultStakeholders(), DefaultOptions(), discardLogger())
	candidates := []Slate{
		{{Relevance: 0.9, Engagement: 0.8, Category: "news"}, {Relevance: 0.7, Category: "news"}},
		{{Relevance: 0.6, CreatorScore: 0.9, Category: "sports|local"}, {Relevance: 0.5, Category: "music"}},
		{{Relevance: 0.8, Misinfo: 0.4, Polarization: 0.6, Category: "politics"}},
	}

	first := s.SelectOptimalSlate(candidates)
	for i := 0; i < 5; i++ {
		again := s.SelectOptimalSlate(candidates)
		if again.Index != first.Index || again.Welfare != first.Welfare {
			t.Fatalf("run %d: got (%d, %f), want (%d, %f)", i, again.Index, again.Welfare, first.Index, first.Welfare)
		}
	}
}

func TestSelectEmptyCandidates(t *testing.T) {
	s := NewSelector(DefaultStakeholders(), DefaultOptions(), discardLogger())
	res := s.SelectOptimalSlate(nil)

	if res.Selected {
		t.Fatal("expected no selection")
	}
	if res.Index != -1 {
		t.Errorf("expected index -1, got %d", res.Index)
	}
	if res.Slate != nil || res.Outcome != nil || res.Utilities != nil {
		t.Error("expected empty result fields")
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := decoded["welfare"]; !ok || v != nil {
		t.Errorf("expected welfare null, got %v", v)
	}
	if decoded["selected"] != false {
		t.Errorf("expected selected=false, got %v", decoded["selected"])
	}
}

func TestSelectEmptySlateCandidate(t *testing.T) {
	s := NewSelector(DefaultStakeholders(), DefaultOptions(), discardLogger())
	res := s.SelectOptimalSlate([]Slate{{}})

	if !res.Selected || res.Index != 0 {
		t.Fatalf("expected the empty slate to be selected, got %+v", res)
	}
	if res.Welfare != 0 {
		t.Errorf("expected zero welfare, got %f", res.Welfare)
	}
	if !res.Outcome.Finite() {
		t.Error("outcome must be finite")
	}
}

func TestSelectZeroStakeholders(t *testing.T) {
	s := NewSelector(nil, DefaultOptions(), discardLogger())
	res := s.SelectOptimalSlate([]Slate{pair(1, 1), pair(9, 9)})

	if !res.Selected || res.Index != 0 {
		t.Fatalf("expected first candidate with zero welfare, got %+v", res)
	}
	if res.Welfare != 0 || res.Penalized {
		t.Errorf("expected welfare 0 without penalty, got %f penalized=%v", res.Welfare, res.Penalized)
	}
	if len(res.Utilities) != 0 {
		t.Errorf("expected no utilities, got %v", res.Utilities)
	}
}

func TestSelectSingleStakeholderScenario(t *testing.T) {
	st, err := NewStakeholders([]StakeholderSpec{{Name: "user", Weights: map[string]float64{MetricRelevance: 1}}})
	if err != nil {
		t.Fatal(err)
	}
	s := NewSelector(st, DefaultOptions(), discardLogger())

	slate := Slate{{Relevance: 0.8, Category: "news"}, {Relevance: 0.6, Category: "news"}}
	outcome := s.EvaluateSlateOutcome(slate)
	if !approx(outcome[MetricRelevance], 0.7) {
		t.Errorf("expected relevance 0.7, got %f", outcome[MetricRelevance])
	}
	if outcome[MetricDiversity] != 0 {
		t.Errorf("expected diversity 0, got %f", outcome[MetricDiversity])
	}

	res := s.SelectOptimalSlate([]Slate{slate})
	if !approx(res.Welfare, 0.7) {
		t.Errorf("expected welfare 0.7, got %f", res.Welfare)
	}
}

func TestSelectOptimalSlateContextMatchesSequential(t *testing.T) {
	opts := DefaultOptions()
	opts.Workers = 4
	opts.ParetoEnabled = true
	s := NewSelector(DefaultStakeholders(), opts, discardLogger())

	var candidates []Slate
	for i := 0; i < 40; i++ {
		f := float64(i%7) / 7
		candidates = append(candidates, Slate{
			{Relevance: f, Engagement: 1 - f, CreatorScore: f / 2, Category: "a|b"},
			{Relevance: 1 - f, Misinfo: f / 3, Category: "c"},
		})
	}
	// repeated candidate exercises the input-order tie-break
	candidates = append(candidates, candidates[0])

	want := s.SelectOptimalSlate(candidates)
	got, err := s.SelectOptimalSlateContext(context.Background(), candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Index != want.Index || got.Welfare != want.Welfare {
		t.Errorf("concurrent (%d, %f) != sequential (%d, %f)", got.Index, got.Welfare, want.Index, want.Welfare)
	}
	if len(got.Frontier) != len(want.Frontier) {
		t.Errorf("frontier mismatch: %v vs %v", got.Frontier, want.Frontier)
	}
}

func TestSelectOptimalSlateContextCancelled(t *testing.T) {
	s := twoPartySelector(t, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.SelectOptimalSlateContext(ctx, []Slate{pair(1, 1)})
	if err == nil {
		t.Fatal("expected context error")
	}
	if res.Selected {
		t.Error("cancelled selection must not report a slate")
	}
}

func TestSelectorCopiesStakeholders(t *testing.T) {
	st := DefaultStakeholders()
	s := NewSelector(st, DefaultOptions(), discardLogger())
	st[0].Name = "mutated"
	if s.Stakeholders()[0].Name != "user" {
		t.Error("selector must not observe caller mutations")
	}
}

func overflowSelector(t *testing.T, weights map[string]float64) *Selector {
	t.Helper()
	st, err := NewStakeholders([]StakeholderSpec{
		{Name: "a", Weights: weights},
		{Name: "b", Weights: map[string]float64{MetricEngagement: 1}},
	})
	if err != nil {
		t.Fatalf("NewStakeholders: %v", err)
	}
	return NewSelector(st, DefaultOptions(), discardLogger())
}

func TestSelectSkipsNonFiniteWelfare(t *testing.T) {
	valid := Slate{{Engagement: 1}}

	tests := []struct {
		name    string
		weights map[string]float64
		big     Slate
	}{
		{
			name:    "utility overflows to +Inf",
			weights: map[string]float64{MetricRelevance: 10},
			big:     Slate{{Relevance: 1e308}, {Relevance: 1e308}},
		},
		{
			name:    "utility overflows to NaN",
			weights: map[string]float64{MetricRelevance: 10, MetricMisinformation: -10},
			big:     Slate{{Relevance: 1e308, Misinfo: 1e308}},
		},
		{
			name:    "welfare sum overflows",
			weights: map[string]float64{MetricRelevance: 1},
			big:     Slate{{Relevance: 1.5e308, Engagement: 1.5e308}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := overflowSelector(t, tt.weights)
			if ev := s.Evaluate(0, tt.big); ev.Finite() {
				t.Fatalf("expected non-finite evaluation, got welfare %g", ev.Welfare)
			}

			for _, candidates := range [][]Slate{{tt.big, valid}, {valid, tt.big}} {
				res := s.SelectOptimalSlate(candidates)
				if !res.Selected {
					t.Fatal("expected the finite candidate to be selected")
				}
				if len(res.Slate) != 1 || res.Slate[0].Engagement != 1 || res.Slate[0].Relevance != 0 {
					t.Errorf("selected the overflowing slate at index %d", res.Index)
				}
				if res.Skipped != 1 {
					t.Errorf("expected 1 skipped candidate, got %d", res.Skipped)
				}
				if math.IsNaN(res.Welfare) || math.IsInf(res.Welfare, 0) {
					t.Errorf("expected finite welfare, got %g", res.Welfare)
				}
				if _, err := json.Marshal(res); err != nil {
					t.Errorf("result must encode: %v", err)
				}
			}
		})
	}
}

func TestSelectAllCandidatesNonFinite(t *testing.T) {
	s := overflowSelector(t, map[string]float64{MetricRelevance: 10})
	big := Slate{{Relevance: 1e308}}

	opts := DefaultOptions()
	opts.ParetoEnabled = true
	opts.Workers = 2
	s = NewSelector(s.Stakeholders(), opts, discardLogger())

	res, err := s.SelectOptimalSlateContext(context.Background(), []Slate{big, big})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Selected || res.Index != -1 {
		t.Errorf("expected no selection, got index %d", res.Index)
	}
	if res.Skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", res.Skipped)
	}
	if res.Frontier != nil {
		t.Errorf("expected no frontier, got %v", res.Frontier)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["welfare"] != nil {
		t.Errorf("expected null welfare, got %v", raw["welfare"])
	}
	if raw["skipped"] != float64(2) {
		t.Errorf("expected skipped 2, got %v", raw["skipped"])
	}
}

func TestSelectFrontierIgnoresNonFinite(t *testing.T) {
	opts := DefaultOptions()
	opts.ParetoEnabled = true
	st, err := NewStakeholders([]StakeholderSpec{
		{Name: "a", Weights: map[string]float64{MetricRelevance: 10}},
		{Name: "b", Weights: map[string]float64{MetricEngagement: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	s := NewSelector(st, opts, discardLogger())

	res := s.SelectOptimalSlate([]Slate{{{Relevance: 1e308, Engagement: 5}}, pair(0.1, 1)})
	if len(res.Frontier) != 1 || res.Frontier[0] != 1 {
		t.Errorf("expected frontier [1], got %v", res.Frontier)
	}
}
