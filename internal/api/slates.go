package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Equilibrium/internal/broker"
	"github.com/MikeSquared-Agency/Equilibrium/internal/scoring"
	"github.com/MikeSquared-Agency/Equilibrium/internal/store"
)

type SlatesHandler struct {
	broker *broker.Broker
}

func NewSlatesHandler(b *broker.Broker) *SlatesHandler {
	return &SlatesHandler{broker: b}
}

// SelectRequest carries candidates as loose records so malformed attributes
// are reported per item. An empty candidates array is a valid request.
type SelectRequest struct {
	RequestID  string             `json:"request_id,omitempty" validate:"omitempty,max=128"`
	Candidates [][]map[string]any `json:"candidates" validate:"required"`
}

type SelectResponse struct {
	SelectionID  uuid.UUID      `json:"selection_id"`
	RequestID    string         `json:"request_id,omitempty"`
	Stakeholders []string       `json:"stakeholders"`
	Result       scoring.Result `json:"result"`
	DurationMs   float64        `json:"duration_ms"`
}

func (h *SlatesHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	candidates := make([]scoring.Slate, len(req.Candidates))
	for i, recs := range req.Candidates {
		slate, err := scoring.SlateFromRecords(recs)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid candidate", fmt.Sprintf("candidate %d: %v", i, err))
			return
		}
		candidates[i] = slate
	}

	sel, res, err := h.broker.Select(r.Context(), broker.Request{
		RequestID:  req.RequestID,
		Source:     store.SourceHTTP,
		Candidates: candidates,
	})
	if err != nil {
		writeSelectError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SelectResponse{
		SelectionID:  sel.ID,
		RequestID:    sel.RequestID,
		Stakeholders: stakeholderNames(h.broker.Selector().Stakeholders()),
		Result:       res,
		DurationMs:   sel.DurationMs,
	})
}

func writeSelectError(w http.ResponseWriter, err error) {
	var ce *broker.CandidateError
	switch {
	case errors.Is(err, broker.ErrTooManyCandidates), errors.Is(err, broker.ErrSlateTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &ce):
		writeError(w, http.StatusBadRequest, "invalid candidate", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type OutcomeRequest struct {
	Slate []map[string]any `json:"slate" validate:"required"`
}

type StakeholderOutcome struct {
	Name          string                 `json:"name"`
	Utility       float64                `json:"utility"`
	Contributions []scoring.Contribution `json:"contributions"`
}

type OutcomeResponse struct {
	Outcome      scoring.OutcomeVector `json:"outcome"`
	Stakeholders []StakeholderOutcome  `json:"stakeholders"`
	RawWelfare   float64               `json:"raw_welfare"`
	Welfare      float64               `json:"welfare"`
	Penalized    bool                  `json:"penalized"`
}

// Outcome scores a single slate without recording a selection.
func (h *SlatesHandler) Outcome(w http.ResponseWriter, r *http.Request) {
	var req OutcomeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	slate, err := scoring.SlateFromRecords(req.Slate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slate", err.Error())
		return
	}

	sel := h.broker.Selector()
	ev := sel.Evaluate(0, slate)
	if !ev.Finite() {
		writeError(w, http.StatusUnprocessableEntity, "slate scores are not finite")
		return
	}
	resp := OutcomeResponse{
		Outcome:    ev.Outcome,
		RawWelfare: ev.RawWelfare,
		Welfare:    ev.Welfare,
		Penalized:  ev.Penalized,
	}
	for i, st := range sel.Stakeholders() {
		resp.Stakeholders = append(resp.Stakeholders, StakeholderOutcome{
			Name:          st.Name,
			Utility:       ev.Utilities[i],
			Contributions: st.Explain(ev.Outcome),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func stakeholderNames(stakeholders []scoring.Stakeholder) []string {
	names := make([]string, len(stakeholders))
	for i, s := range stakeholders {
		names[i] = s.Name
	}
	return names
}
