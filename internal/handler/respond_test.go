package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/chorechart/internal/apperr"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestWriteErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperr.Validation("bad"), http.StatusUnprocessableEntity},
		{apperr.Unauthorized("who"), http.StatusUnauthorized},
		{apperr.Forbidden("no"), http.StatusForbidden},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.ErrAlreadyApproved, http.StatusBadRequest},
		{apperr.Conflict("taken"), http.StatusConflict},
		{fmt.Errorf("approve: %w", apperr.ErrNotCompleted), http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, discard, tt.err)
		assert.Equal(t, tt.status, rec.Code, "err = %v", tt.err)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, discard, errors.New("sql: connection refused"))
	assert.JSONEq(t, `{"detail":"internal server error"}`, rec.Body.String())
}

func TestWriteErrorCooldown(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, discard, apperr.CooldownActive(2))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"chore is in cooldown, available again in 2 days","remaining_days":2}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"dishes"}`))
	require.NoError(t, decodeJSON(httptest.NewRecorder(), r, &v, false))
	assert.Equal(t, "dishes", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", nil)
	assert.NoError(t, decodeJSON(httptest.NewRecorder(), r, &v, true))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(decodeJSON(httptest.NewRecorder(), r, &v, false)))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`[1,2`))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(decodeJSON(httptest.NewRecorder(), r, &v, true)))
}

func TestParseIDParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetPathValue("id", "42")
	id, err := parseIDParam(r)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "abc", "0", "-3"} {
		r.SetPathValue("id", raw)
		_, err := parseIDParam(r)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "id %q", raw)
	}
}
