package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Selection sources.
const (
	SourceHTTP = "http"
	SourceNATS = "nats"
)

// StakeholderScore is one stakeholder's utility for the chosen slate.
type StakeholderScore struct {
	Name    string  `json:"name"`
	Utility float64 `json:"utility"`
}

// Selection is the audit record of one slate selection.
type Selection struct {
	ID             uuid.UUID `json:"selection_id"`
	RequestID      string    `json:"request_id,omitempty"`
	Source         string    `json:"source"`
	CandidateCount int       `json:"candidate_count"`

	// Outcome. ChosenIndex is -1 and Welfare nil when there were no candidates.
	Selected    bool               `json:"selected"`
	ChosenIndex int                `json:"chosen_index"`
	Welfare     *float64           `json:"welfare"`
	Penalized   bool               `json:"penalized"`
	Outcome     map[string]float64 `json:"outcome,omitempty"`
	Utilities   []StakeholderScore `json:"utilities,omitempty"`
	Frontier    []int              `json:"frontier,omitempty"`
	DurationMs  float64            `json:"duration_ms"`
	CreatedAt   time.Time          `json:"created_at"`
}

type SelectionFilter struct {
	Source   string
	Selected *bool
	Limit    int
	Offset   int
}

type SelectionStats struct {
	Total      int     `json:"total"`
	Selected   int     `json:"selected"`
	Empty      int     `json:"empty"`
	Penalized  int     `json:"penalized"`
	AvgWelfare float64 `json:"avg_welfare"`
}

type Store interface {
	CreateSelection(ctx context.Context, s *Selection) error
	GetSelection(ctx context.Context, id uuid.UUID) (*Selection, error)
	ListSelections(ctx context.Context, filter SelectionFilter) ([]*Selection, error)
	GetStats(ctx context.Context) (*SelectionStats, error)
	Close() error
}
