package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Equilibrium/internal/scoring"
)

type StakeholdersHandler struct {
	selector *scoring.Selector
}

func NewStakeholdersHandler(sel *scoring.Selector) *StakeholdersHandler {
	return &StakeholdersHandler{selector: sel}
}

type stakeholdersResponse struct {
	Stakeholders      []scoring.Stakeholder `json:"stakeholders"`
	FairnessThreshold float64               `json:"fairness_threshold"`
	FairnessPenalty   float64               `json:"fairness_penalty"`
	Metrics           []string              `json:"metrics"`
}

func (h *StakeholdersHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := h.selector.Options()
	stakeholders := h.selector.Stakeholders()
	if stakeholders == nil {
		stakeholders = []scoring.Stakeholder{}
	}
	writeJSON(w, http.StatusOK, stakeholdersResponse{
		Stakeholders:      stakeholders,
		FairnessThreshold: opts.FairnessThreshold,
		FairnessPenalty:   opts.FairnessPenalty,
		Metrics:           scoring.Metrics,
	})
}
