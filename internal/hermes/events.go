package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/Equilibrium/internal/scoring"
)

// SelectionRequestEvent is the inbound payload on slate.request.
type SelectionRequestEvent struct {
	RequestID  string           `json:"request_id,omitempty"`
	Candidates [][]scoring.Item `json:"candidates"`
	ReplyTo    string           `json:"reply_to,omitempty"`
}

type StakeholderUtility struct {
	Name    string  `json:"name"`
	Utility float64 `json:"utility"`
}

// SelectionCompletedEvent is published for every recorded selection.
// Welfare is nil and ChosenIndex -1 when no candidate was available.
type SelectionCompletedEvent struct {
	SelectionID    string               `json:"selection_id"`
	RequestID      string               `json:"request_id,omitempty"`
	Source         string               `json:"source"`
	CandidateCount int                  `json:"candidate_count"`
	Selected       bool                 `json:"selected"`
	ChosenIndex    int                  `json:"chosen_index"`
	Welfare        *float64             `json:"welfare"`
	Penalized      bool                 `json:"penalized"`
	Outcome        map[string]float64   `json:"outcome,omitempty"`
	Utilities      []StakeholderUtility `json:"utilities,omitempty"`
	Timestamp      time.Time            `json:"timestamp"`
}

// SelectionFailedEvent answers a slate.request that could not be evaluated.
type SelectionFailedEvent struct {
	RequestID string    `json:"request_id,omitempty"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}
