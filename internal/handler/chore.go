package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorechart/internal/auth"
	"github.com/dukerupert/chorechart/internal/metrics"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/service"
	"github.com/dukerupert/chorechart/internal/websocket"
)

type ChoreHandler struct {
	chores  *service.ChoreService
	hub     *websocket.Hub
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewChoreHandler(chores *service.ChoreService, hub *websocket.Hub, m *metrics.Metrics, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{chores: chores, hub: hub, metrics: m, logger: logger}
}

// notify counts the event and pushes it to the caller's family.
func (h *ChoreHandler) notify(p auth.Principal, action string, id int64, extra map[string]any) {
	if h.metrics != nil {
		h.metrics.ChoreEvent(action)
	}
	if h.hub != nil {
		h.hub.Broadcast(p.FamilyID, websocket.NewMessage("chore", action, id, extra))
	}
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.ChoreInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	c, err := h.chores.Create(r.Context(), p, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.notify(p, "created", c.ID, nil)
	writeJSON(w, http.StatusCreated, c)
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.chores.List)
}

func (h *ChoreHandler) Available(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.chores.Available)
}

func (h *ChoreHandler) list(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, p auth.Principal) ([]model.ChoreWithAssignments, error)) {
	p, err := principal(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	chores, err := fetch(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if chores == nil {
		chores = []model.ChoreWithAssignments{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) PendingApproval(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pending, err := h.chores.PendingApproval(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (h *ChoreHandler) ChildChores(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	chores, err := h.chores.ChildChores(r.Context(), p, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if chores == nil {
		chores = []model.ChoreWithAssignments{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	c, err := h.chores.Get(r.Context(), p, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in service.ChoreUpdate
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	c, err := h.chores.Update(r.Context(), p, id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.notify(p, "updated", c.ID, nil)
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	res, err := h.chores.Delete(r.Context(), p, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	action := "deleted"
	if res.Disabled {
		action = "disabled"
	}
	h.notify(p, action, id, nil)
	writeJSON(w, http.StatusOK, res)
}

func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	a, err := h.chores.Complete(r.Context(), p, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.notify(p, "completed", id, map[string]any{"assignment_id": a.ID, "child_id": a.ChildID})
	writeJSON(w, http.StatusOK, a)
}

func (h *ChoreHandler) Approve(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in service.ApproveInput
	if err := decodeJSON(w, r, &in, true); err != nil {
		writeError(w, h.logger, err)
		return
	}
	a, err := h.chores.Approve(r.Context(), p, id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.notify(p, "approved", id, map[string]any{"assignment_id": a.ID, "child_id": a.ChildID})
	writeJSON(w, http.StatusOK, a)
}

func (h *ChoreHandler) Reject(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in service.RejectInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	a, err := h.chores.Reject(r.Context(), p, id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.notify(p, "rejected", id, map[string]any{"assignment_id": a.ID, "child_id": a.ChildID})
	writeJSON(w, http.StatusOK, a)
}

func (h *ChoreHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setDisabled(w, r, true)
}

func (h *ChoreHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setDisabled(w, r, false)
}

func (h *ChoreHandler) setDisabled(w http.ResponseWriter, r *http.Request, disabled bool) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}
	set := h.chores.Enable
	action := "enabled"
	if disabled {
		set = h.chores.Disable
		action = "disabled"
	}
	c, err := set(r.Context(), p, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.notify(p, action, c.ID, nil)
	writeJSON(w, http.StatusOK, c)
}

// target resolves the caller and the {id} path value, writing the error
// response itself when either is missing.
func (h *ChoreHandler) target(w http.ResponseWriter, r *http.Request) (auth.Principal, int64, bool) {
	p, err := principal(r)
	if err != nil {
		writeError(w, h.logger, err)
		return p, 0, false
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return p, 0, false
	}
	return p, id, true
}
