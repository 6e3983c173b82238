package scoring

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"
)

// Options tunes the welfare computation.
type Options struct {
	// FairnessThreshold is the fraction of the mean utility below which the
	// worst-off stakeholder triggers the fairness penalty.
	FairnessThreshold float64
	// FairnessPenalty multiplies welfare once when the threshold is crossed.
	FairnessPenalty float64
	// Workers bounds concurrent candidate evaluation in SelectOptimalSlateContext.
	Workers int
	// ParetoEnabled adds the stakeholder-utility Pareto frontier to results.
	ParetoEnabled bool
}

// DefaultOptions returns the standard Rawlsian settings: a 50% welfare cut
// when any stakeholder falls under 40% of the mean utility.
func DefaultOptions() Options {
	return Options{
		FairnessThreshold: 0.4,
		FairnessPenalty:   0.5,
		Workers:           1,
		ParetoEnabled:     false,
	}
}

// Evaluation is the scored form of one candidate slate.
type Evaluation struct {
	Index      int           `json:"index"`
	Outcome    OutcomeVector `json:"outcome"`
	Utilities  []float64     `json:"utilities"`
	RawWelfare float64       `json:"raw_welfare"`
	Welfare    float64       `json:"welfare"`
	Penalized  bool          `json:"penalized"`
}

// Finite reports whether the evaluation can take part in a selection.
// Extreme attribute or weight values can overflow a utility to ±Inf or NaN.
func (ev Evaluation) Finite() bool {
	if math.IsNaN(ev.Welfare) || math.IsInf(ev.Welfare, 0) {
		return false
	}
	for _, u := range ev.Utilities {
		if math.IsNaN(u) || math.IsInf(u, 0) {
			return false
		}
	}
	return ev.Outcome.Finite()
}

// Result is the outcome of a selection. When Selected is false there was
// no usable candidate: Index is -1 and Welfare carries no meaning.
type Result struct {
	Selected  bool
	Index     int
	Slate     Slate
	Welfare   float64
	Penalized bool
	Outcome   OutcomeVector
	Utilities []float64
	// Frontier holds the indices of Pareto-optimal candidates when enabled.
	Frontier []int
	// Skipped counts candidates excluded because their scores were not finite.
	Skipped int
}

// MarshalJSON renders welfare as null for an empty selection.
func (r Result) MarshalJSON() ([]byte, error) {
	type wire struct {
		Selected  bool          `json:"selected"`
		Index     int           `json:"index"`
		Slate     Slate         `json:"slate"`
		Welfare   *float64      `json:"welfare"`
		Penalized bool          `json:"penalized"`
		Outcome   OutcomeVector `json:"outcome"`
		Utilities []float64     `json:"utilities"`
		Frontier  []int         `json:"frontier,omitempty"`
		Skipped   int           `json:"skipped,omitempty"`
	}
	w := wire{
		Selected:  r.Selected,
		Index:     r.Index,
		Slate:     r.Slate,
		Penalized: r.Penalized,
		Outcome:   r.Outcome,
		Utilities: r.Utilities,
		Frontier:  r.Frontier,
		Skipped:   r.Skipped,
	}
	if r.Selected {
		welfare := r.Welfare
		w.Welfare = &welfare
	}
	return json.Marshal(w)
}

// Selector picks the welfare-maximising slate for a fixed stakeholder set.
// It holds no mutable state and is safe for concurrent use.
type Selector struct {
	stakeholders []Stakeholder
	opts         Options
	logger       *slog.Logger
}

// NewSelector creates a Selector. The stakeholder order fixes the meaning
// of every utilities slice it returns.
func NewSelector(stakeholders []Stakeholder, opts Options, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		stakeholders: append([]Stakeholder(nil), stakeholders...),
		opts:         opts,
		logger:       logger,
	}
}

// Stakeholders returns the configured stakeholders in order.
func (s *Selector) Stakeholders() []Stakeholder {
	return append([]Stakeholder(nil), s.stakeholders...)
}

// Options returns the selector's options.
func (s *Selector) Options() Options {
	return s.opts
}

// EvaluateSlateOutcome returns the raw outcome metrics of a slate.
func (s *Selector) EvaluateSlateOutcome(slate Slate) OutcomeVector {
	return Aggregate(slate)
}

// Utilities evaluates every stakeholder against an outcome, in order.
func (s *Selector) Utilities(outcome OutcomeVector) []float64 {
	utilities := make([]float64, len(s.stakeholders))
	for i, st := range s.stakeholders {
		utilities[i] = st.Utility(outcome)
	}
	return utilities
}

// Evaluate scores one candidate slate.
func (s *Selector) Evaluate(index int, slate Slate) Evaluation {
	outcome := Aggregate(slate)
	utilities := s.Utilities(outcome)

	var welfare float64
	for _, u := range utilities {
		welfare += u
	}
	ev := Evaluation{
		Index:      index,
		Outcome:    outcome,
		Utilities:  utilities,
		RawWelfare: welfare,
		Welfare:    welfare,
	}

	if s.unfair(utilities) {
		ev.Welfare = welfare * s.opts.FairnessPenalty
		ev.Penalized = true
	}
	return ev
}

// unfair applies the Rawlsian check min(u) < mean(u)*threshold literally,
// including when the mean is zero or negative. No stakeholders, no check.
func (s *Selector) unfair(utilities []float64) bool {
	if len(utilities) == 0 {
		return false
	}
	sum := utilities[0]
	minU := utilities[0]
	for _, u := range utilities[1:] {
		sum += u
		if u < minU {
			minU = u
		}
	}
	avg := sum / float64(len(utilities))
	return minU < avg*s.opts.FairnessThreshold
}

// SelectOptimalSlate evaluates candidates in order and returns the one with
// the strictly highest welfare; the earliest candidate wins ties.
func (s *Selector) SelectOptimalSlate(candidates []Slate) Result {
	evals := make([]Evaluation, len(candidates))
	for i, c := range candidates {
		evals[i] = s.Evaluate(i, c)
	}
	return s.reduce(candidates, evals)
}

// SelectOptimalSlateContext is SelectOptimalSlate with candidates evaluated
// concurrently by up to Options.Workers goroutines. The reduction still runs
// in input order so the tie-break is unchanged.
func (s *Selector) SelectOptimalSlateContext(ctx context.Context, candidates []Slate) (Result, error) {
	evals := make([]Evaluation, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.opts.Workers, 1))
	for i := range candidates {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			evals[i] = s.Evaluate(i, candidates[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{Index: -1}, err
	}
	return s.reduce(candidates, evals), nil
}

func (s *Selector) reduce(candidates []Slate, evals []Evaluation) Result {
	res := Result{Index: -1}
	penalized := 0
	finite := make([]Evaluation, 0, len(evals))
	for _, ev := range evals {
		if !ev.Finite() {
			res.Skipped++
			continue
		}
		finite = append(finite, ev)
		if ev.Penalized {
			penalized++
		}
		if !res.Selected || ev.Welfare > res.Welfare {
			res = Result{
				Selected:  true,
				Index:     ev.Index,
				Slate:     candidates[ev.Index],
				Welfare:   ev.Welfare,
				Penalized: ev.Penalized,
				Outcome:   ev.Outcome,
				Utilities: ev.Utilities,
				Skipped:   res.Skipped,
			}
		}
	}

	if s.opts.ParetoEnabled && res.Selected {
		res.Frontier = ComputeFrontier(finite)
	}
	if res.Skipped > 0 {
		s.logger.Warn("candidates with non-finite welfare skipped",
			"candidates", len(candidates),
			"skipped", res.Skipped,
		)
	}

	if res.Selected {
		s.logger.Debug("slate selected",
			"candidates", len(candidates),
			"index", res.Index,
			"welfare", res.Welfare,
			"penalized_candidates", penalized,
		)
	} else {
		s.logger.Debug("no candidates to select from")
	}
	return res
}
