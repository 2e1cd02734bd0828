package chore

import (
	"math"
	"time"

	"github.com/dukerupert/chorechart/internal/apperr"
	"github.com/dukerupert/chorechart/internal/model"
)

// Decision tells the caller how to record a permitted completion.
type Decision int

const (
	// CompleteInPlace marks the latest cycle row completed.
	CompleteInPlace Decision = iota
	// StartNewCycle inserts the next cycle row already completed.
	StartNewCycle
)

func (d Decision) String() string {
	if d == StartNewCycle {
		return "start_new_cycle"
	}
	return "complete_in_place"
}

const day = 24 * time.Hour

// Gate decides whether a completion of c is permitted now, given the latest
// cycle row of the slot being completed (nil when the slot has no rows yet).
func Gate(c model.Chore, latest *model.Assignment, now time.Time) (Decision, error) {
	if c.IsDisabled {
		return 0, apperr.ErrChoreDisabled
	}
	if latest == nil {
		return StartNewCycle, nil
	}

	switch latest.State() {
	case model.StateAssigned, model.StateRejected:
		return CompleteInPlace, nil
	case model.StateCompleted:
		return 0, apperr.ErrAwaitingApproval
	}

	// Approved.
	if !c.IsRecurring {
		return 0, apperr.ErrAlreadyCompleted
	}
	if remaining := RemainingCooldown(c, *latest, now); remaining > 0 {
		return 0, apperr.CooldownActive(remainingDays(remaining))
	}
	return StartNewCycle, nil
}

// RemainingCooldown is the time left before an approved cycle of a recurring
// chore reopens. It is zero when the chore is already available.
func RemainingCooldown(c model.Chore, approved model.Assignment, now time.Time) time.Duration {
	if approved.ApprovedAt == nil || c.CooldownDays <= 0 {
		return 0
	}
	availableAt := approved.ApprovedAt.Add(time.Duration(c.CooldownDays) * day)
	if !now.Before(availableAt) {
		return 0
	}
	return availableAt.Sub(now)
}

// AvailableAt reports when the slot reopens, or false if it never reopens
// (one-shot chore already approved) or is waiting on the parent.
func AvailableAt(c model.Chore, latest *model.Assignment) (time.Time, bool) {
	if latest == nil || latest.State() != model.StateApproved {
		return time.Time{}, false
	}
	if !c.IsRecurring {
		return time.Time{}, false
	}
	return latest.ApprovedAt.Add(time.Duration(c.CooldownDays) * day), true
}

func remainingDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}
