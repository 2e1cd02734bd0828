// Package apperr defines the error taxonomy shared by the service and HTTP layers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindUnauthorized   Kind = "unauthorized"
	KindForbidden      Kind = "forbidden"
	KindNotFound       Kind = "not_found"
	KindCooldownActive Kind = "cooldown_active"
	KindInvalidState   Kind = "invalid_state"
	KindConflict       Kind = "conflict"
)

// Error is a domain failure carrying a human-readable detail.
type Error struct {
	Kind          Kind
	Detail        string
	RemainingDays int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Is matches two *Error values by kind and detail, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Detail == "" || t.Detail == e.Detail)
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

func Unauthorized(detail string) *Error {
	return &Error{Kind: KindUnauthorized, Detail: detail}
}

func Forbidden(detail string) *Error {
	return &Error{Kind: KindForbidden, Detail: detail}
}

func NotFound(detail string) *Error {
	return &Error{Kind: KindNotFound, Detail: detail}
}

func Conflict(detail string) *Error {
	return &Error{Kind: KindConflict, Detail: detail}
}

func InvalidState(detail string) *Error {
	return &Error{Kind: KindInvalidState, Detail: detail}
}

// CooldownActive reports a recurring chore that reopens in remainingDays.
func CooldownActive(remainingDays int) *Error {
	unit := "days"
	if remainingDays == 1 {
		unit = "day"
	}
	return &Error{
		Kind:          KindCooldownActive,
		Detail:        fmt.Sprintf("chore is in cooldown, available again in %d %s", remainingDays, unit),
		RemainingDays: remainingDays,
	}
}

// State transition failures.
var (
	ErrAlreadyApproved  = InvalidState("chore has already been approved")
	ErrNotCompleted     = InvalidState("chore has not been completed")
	ErrAlreadyCompleted = InvalidState("chore has already been completed")
	ErrAwaitingApproval = InvalidState("chore is awaiting approval")
	ErrChoreDisabled    = InvalidState("chore is disabled")
)

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
