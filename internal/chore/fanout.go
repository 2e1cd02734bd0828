package chore

import (
	"slices"
	"time"

	"github.com/dukerupert/chorechart/internal/apperr"
	"github.com/dukerupert/chorechart/internal/model"
)

// ValidMode reports whether m is a known assignment mode.
func ValidMode(m model.AssignmentMode) bool {
	switch m {
	case model.ModeSingle, model.ModeMultiIndependent, model.ModeUnassigned:
		return true
	}
	return false
}

// PlanTargets validates the target children for a mode and returns them
// deduplicated and sorted. Pool chores take no targets.
func PlanTargets(mode model.AssignmentMode, targets []int64) ([]int64, error) {
	if !ValidMode(mode) {
		return nil, apperr.Validation("assignment_mode must be one of single, multi_independent, unassigned")
	}

	ids := slices.Clone(targets)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	switch mode {
	case model.ModeSingle:
		if len(ids) != 1 {
			return nil, apperr.Validation("single assignment requires exactly one child")
		}
	case model.ModeMultiIndependent:
		if len(ids) == 0 {
			return nil, apperr.Validation("multi_independent assignment requires at least one child")
		}
	case model.ModeUnassigned:
		if len(ids) != 0 {
			return nil, apperr.Validation("unassigned chores cannot have assignees")
		}
		return nil, nil
	}
	return ids, nil
}

// SlotFor returns the uniqueness slot used for a child's cycle rows.
func SlotFor(mode model.AssignmentMode, childID int64) int64 {
	if mode == model.ModeUnassigned {
		return model.PoolSlot
	}
	return childID
}

// AssigneeDiff lists the changes needed to move a chore from its current
// assignees to the desired set.
type AssigneeDiff struct {
	Add    []int64
	Remove []int64
}

func (d AssigneeDiff) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// DiffAssignees compares two sorted, deduplicated id sets.
func DiffAssignees(current, desired []int64) AssigneeDiff {
	var d AssigneeDiff
	for _, id := range desired {
		if !slices.Contains(current, id) {
			d.Add = append(d.Add, id)
		}
	}
	for _, id := range current {
		if !slices.Contains(desired, id) {
			d.Remove = append(d.Remove, id)
		}
	}
	return d
}

// Removable reports whether a dropped child's cycle row can be deleted.
// Rows carrying a completion or an approval are kept as history.
func Removable(a model.Assignment) bool {
	s := a.State()
	return s == model.StateAssigned || s == model.StateRejected
}

// Claim decides whether childID may complete a pool chore whose latest row is
// latest. A pool slot belongs to its claimant until the claim is approved.
func Claim(c model.Chore, latest *model.Assignment, childID int64, now time.Time) (Decision, error) {
	if c.IsDisabled {
		return 0, apperr.ErrChoreDisabled
	}
	if latest != nil && latest.State() != model.StateApproved && latest.ChildID != childID {
		return 0, apperr.Conflict("chore has already been claimed by another child")
	}
	return Gate(c, latest, now)
}

// LatestBySlot keeps the highest cycle row per slot.
func LatestBySlot(rows []model.Assignment) map[int64]model.Assignment {
	latest := make(map[int64]model.Assignment, len(rows))
	for _, a := range rows {
		if cur, ok := latest[a.Slot]; !ok || a.Cycle > cur.Cycle {
			latest[a.Slot] = a
		}
	}
	return latest
}

// EverCompleted reports whether any row was ever completed or approved.
func EverCompleted(rows []model.Assignment) bool {
	for _, a := range rows {
		if a.CompletedAt != nil || a.ApprovedAt != nil {
			return true
		}
	}
	return false
}
