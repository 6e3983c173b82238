package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/Equilibrium/internal/config"
	"github.com/MikeSquared-Agency/Equilibrium/internal/hermes"
	"github.com/MikeSquared-Agency/Equilibrium/internal/metrics"
	"github.com/MikeSquared-Agency/Equilibrium/internal/scoring"
	"github.com/MikeSquared-Agency/Equilibrium/internal/store"
)

var (
	ErrTooManyCandidates = errors.New("too many candidate slates")
	ErrSlateTooLarge     = errors.New("candidate slate too large")
	ErrStopped           = errors.New("broker stopped")
)

// requestTimeout bounds selections started from NATS messages.
const requestTimeout = 30 * time.Second

// Request is one selection over a list of candidate slates.
type Request struct {
	RequestID  string
	Source     string
	Candidates []scoring.Slate
}

// CandidateError reports an invalid item inside one candidate slate.
type CandidateError struct {
	Candidate int
	Err       error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("candidate %d: %v", e.Candidate, e.Err)
}

func (e *CandidateError) Unwrap() error { return e.Err }

type Broker struct {
	store    store.Store
	hermes   hermes.Client
	selector *scoring.Selector
	cfg      *config.Config
	logger   *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// New creates a Broker. h may be nil when NATS is not configured.
func New(s store.Store, h hermes.Client, sel *scoring.Selector, cfg *config.Config, logger *slog.Logger) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		store:    s,
		hermes:   h,
		selector: sel,
		cfg:      cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Selector exposes the selector for read-only endpoints.
func (b *Broker) Selector() *scoring.Selector {
	return b.selector
}

// Stop cancels in-flight NATS selections and waits for their handlers.
func (b *Broker) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.cancel()
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Broker) checkLimits(candidates []scoring.Slate) error {
	sel := b.cfg.Selection
	if sel.MaxCandidates > 0 && len(candidates) > sel.MaxCandidates {
		return fmt.Errorf("%w: %d > %d", ErrTooManyCandidates, len(candidates), sel.MaxCandidates)
	}
	for i, c := range candidates {
		if sel.MaxSlateSize > 0 && len(c) > sel.MaxSlateSize {
			return &CandidateError{Candidate: i, Err: fmt.Errorf("%w: %d > %d", ErrSlateTooLarge, len(c), sel.MaxSlateSize)}
		}
		if err := c.Validate(); err != nil {
			return &CandidateError{Candidate: i, Err: err}
		}
	}
	return nil
}

// Select validates the request, picks the best slate, records the selection
// and announces it. An empty candidate list is recorded as an empty selection.
func (b *Broker) Select(ctx context.Context, req Request) (*store.Selection, scoring.Result, error) {
	if req.Source == "" {
		req.Source = store.SourceHTTP
	}
	if err := b.checkLimits(req.Candidates); err != nil {
		metrics.SelectionsTotal.WithLabelValues(req.Source, metrics.OutcomeError).Inc()
		return nil, scoring.Result{Index: -1}, err
	}

	start := time.Now()
	res, err := b.selector.SelectOptimalSlateContext(ctx, req.Candidates)
	elapsed := time.Since(start)
	if err != nil {
		metrics.SelectionsTotal.WithLabelValues(req.Source, metrics.OutcomeError).Inc()
		return nil, res, fmt.Errorf("select slate: %w", err)
	}

	outcome := metrics.OutcomeSelected
	switch {
	case !res.Selected:
		outcome = metrics.OutcomeEmpty
	case res.Penalized:
		outcome = metrics.OutcomePenalized
	}
	metrics.RecordSelection(req.Source, outcome, len(req.Candidates), res.Welfare, elapsed)

	sel := b.record(req, res, elapsed)
	if err := b.store.CreateSelection(ctx, sel); err != nil {
		return nil, res, fmt.Errorf("record selection: %w", err)
	}

	b.logger.Info("slate selected",
		"selection_id", sel.ID,
		"request_id", req.RequestID,
		"source", req.Source,
		"candidates", len(req.Candidates),
		"outcome", outcome,
		"index", res.Index,
		"skipped", res.Skipped,
		"duration_ms", sel.DurationMs,
	)

	b.publishSelection(sel)
	return sel, res, nil
}

func (b *Broker) record(req Request, res scoring.Result, elapsed time.Duration) *store.Selection {
	sel := &store.Selection{
		RequestID:      req.RequestID,
		Source:         req.Source,
		CandidateCount: len(req.Candidates),
		Selected:       res.Selected,
		ChosenIndex:    res.Index,
		Penalized:      res.Penalized,
		Frontier:       res.Frontier,
		DurationMs:     float64(elapsed.Microseconds()) / 1000,
	}
	if !res.Selected {
		sel.ChosenIndex = -1
		return sel
	}
	welfare := res.Welfare
	sel.Welfare = &welfare
	sel.Outcome = map[string]float64(res.Outcome)
	for i, st := range b.selector.Stakeholders() {
		if i < len(res.Utilities) {
			sel.Utilities = append(sel.Utilities, store.StakeholderScore{Name: st.Name, Utility: res.Utilities[i]})
		}
	}
	return sel
}

func completedEvent(sel *store.Selection) hermes.SelectionCompletedEvent {
	evt := hermes.SelectionCompletedEvent{
		SelectionID:    sel.ID.String(),
		RequestID:      sel.RequestID,
		Source:         sel.Source,
		CandidateCount: sel.CandidateCount,
		Selected:       sel.Selected,
		ChosenIndex:    sel.ChosenIndex,
		Welfare:        sel.Welfare,
		Penalized:      sel.Penalized,
		Outcome:        sel.Outcome,
		Timestamp:      sel.CreatedAt,
	}
	for _, u := range sel.Utilities {
		evt.Utilities = append(evt.Utilities, hermes.StakeholderUtility{Name: u.Name, Utility: u.Utility})
	}
	return evt
}

func (b *Broker) publishSelection(sel *store.Selection) {
	if b.hermes == nil {
		return
	}
	id := sel.ID.String()
	evt := completedEvent(sel)
	b.publish(hermes.SubjectSelectionCompleted(id), evt)
	switch {
	case !sel.Selected:
		b.publish(hermes.SubjectSelectionEmpty(id), evt)
	case sel.Penalized:
		b.publish(hermes.SubjectSelectionPenalized(id), evt)
	}
}

func (b *Broker) publish(subject string, data interface{}) {
	if err := b.hermes.Publish(subject, data); err != nil {
		b.logger.Warn("publish failed", "subject", subject, "error", err)
	}
}

// SetupSubscriptions serves selection requests arriving on NATS.
func (b *Broker) SetupSubscriptions() error {
	if b.hermes == nil {
		return nil
	}
	return b.hermes.Subscribe(hermes.SubjectSelectionRequest, func(_ string, data []byte) {
		b.handleRequest(data)
	})
}

func (b *Broker) handleRequest(data []byte) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		b.logger.Warn("dropping selection request", "error", ErrStopped)
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()
	defer b.wg.Done()

	var req hermes.SelectionRequestEvent
	if err := json.Unmarshal(data, &req); err != nil {
		b.logger.Warn("invalid selection request event", "error", err)
		return
	}

	candidates := make([]scoring.Slate, len(req.Candidates))
	for i, c := range req.Candidates {
		candidates[i] = scoring.Slate(c)
	}

	ctx, cancel := context.WithTimeout(b.ctx, requestTimeout)
	defer cancel()

	sel, _, err := b.Select(ctx, Request{
		RequestID:  req.RequestID,
		Source:     store.SourceNATS,
		Candidates: candidates,
	})
	if err != nil {
		b.logger.Error("selection from NATS request failed", "request_id", req.RequestID, "error", err)
		if req.ReplyTo != "" {
			b.publish(req.ReplyTo, hermes.SelectionFailedEvent{
				RequestID: req.RequestID,
				Error:     err.Error(),
				Timestamp: time.Now().UTC(),
			})
		}
		return
	}
	if req.ReplyTo != "" {
		b.publish(req.ReplyTo, completedEvent(sel))
	}
}
