package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Equilibrium/internal/store"
)

type SelectionsHandler struct {
	store store.Store
}

func NewSelectionsHandler(s store.Store) *SelectionsHandler {
	return &SelectionsHandler{store: s}
}

type listSelectionsQuery struct {
	Source string `validate:"omitempty,oneof=http nats"`
	Limit  int    `validate:"gte=0,lte=1000"`
	Offset int    `validate:"gte=0"`
}

func (h *SelectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listSelectionsQuery{
		Source: r.URL.Query().Get("source"),
		Limit:  getIntParam(r, "limit", 100),
		Offset: getIntParam(r, "offset", 0),
	}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", validationDetails(err)...)
		return
	}

	filter := store.SelectionFilter{Source: q.Source, Limit: q.Limit, Offset: q.Offset}
	if v := r.URL.Query().Get("selected"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid selected")
			return
		}
		filter.Selected = &b
	}

	sels, err := h.store.ListSelections(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sels == nil {
		sels = []*store.Selection{}
	}
	writeJSON(w, http.StatusOK, sels)
}

func (h *SelectionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid selection id")
		return
	}
	sel, err := h.store.GetSelection(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sel == nil {
		writeError(w, http.StatusNotFound, "selection not found")
		return
	}
	writeJSON(w, http.StatusOK, sel)
}
