package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/chorechart/internal/apperr"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/service"
	"github.com/dukerupert/chorechart/internal/websocket"
)

type UserHandler struct {
	users      *service.UserService
	allowances *service.AllowanceService
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewUserHandler(users *service.UserService, allowances *service.AllowanceService, hub *websocket.Hub, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, allowances: allowances, hub: hub, logger: logger}
}

func (h *UserHandler) broadcast(familyID int64, action string, id int64) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, websocket.NewMessage("user", action, id, nil))
	}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	u, err := h.users.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Login implements the OAuth2 password grant: form fields username and
// password in, a bearer token out.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, h.logger, apperr.Validation("invalid form body"))
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeError(w, h.logger, apperr.Validation("username and password are required"))
		return
	}
	token, err := h.users.Login(r.Context(), username, password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	u, err := h.users.Me(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	u, err := h.users.CreateChild(r.Context(), p, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.broadcast(p.FamilyID, "created", u.ID)
	writeJSON(w, http.StatusCreated, u)
}

func (h *UserHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	children, err := h.users.ListChildren(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if children == nil {
		children = []model.User{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *UserHandler) ResetChildPassword(w http.ResponseWriter, r *http.Request) {
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
	var in service.PasswordInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.users.ResetChildPassword(r.Context(), p, id, in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "password updated"})
}

func (h *UserHandler) SetChildActive(w http.ResponseWriter, r *http.Request) {
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
	var in service.ActiveInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	u, err := h.users.SetChildActive(r.Context(), p, id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.broadcast(p.FamilyID, "updated", u.ID)
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) AllowanceSummary(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	sums, err := h.allowances.Summaries(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sums)
}

func (h *UserHandler) MyBalance(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	sum, err := h.allowances.MySummary(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *UserHandler) ChildBalance(w http.ResponseWriter, r *http.Request) {
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
	sum, err := h.allowances.ChildSummary(r.Context(), p, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
