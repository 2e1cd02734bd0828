package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorechart/internal/metrics"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/service"
	"github.com/dukerupert/chorechart/internal/websocket"
)

type AdjustmentHandler struct {
	allowances *service.AllowanceService
	hub        *websocket.Hub
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewAdjustmentHandler(allowances *service.AllowanceService, hub *websocket.Hub, m *metrics.Metrics, logger *slog.Logger) *AdjustmentHandler {
	return &AdjustmentHandler{allowances: allowances, hub: hub, metrics: m, logger: logger}
}

func (h *AdjustmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.AdjustmentInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	adj, err := h.allowances.CreateAdjustment(r.Context(), p, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ChoreEvent(string(adj.Kind))
	}
	if h.hub != nil {
		h.hub.Broadcast(p.FamilyID, websocket.NewMessage("adjustment", "created", adj.ID, map[string]any{
			"child_id": adj.ChildID,
		}))
	}
	writeJSON(w, http.StatusCreated, adj)
}

func (h *AdjustmentHandler) ListByChild(w http.ResponseWriter, r *http.Request) {
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
	adjs, err := h.allowances.ListAdjustments(r.Context(), p, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if adjs == nil {
		adjs = []model.Adjustment{}
	}
	writeJSON(w, http.StatusOK, adjs)
}
