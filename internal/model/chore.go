package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type AssignmentMode string

const (
	ModeSingle           AssignmentMode = "single"
	ModeMultiIndependent AssignmentMode = "multi_independent"
	ModeUnassigned       AssignmentMode = "unassigned"
)

// PoolSlot is the slot value shared by every claim of an unassigned-pool chore.
const PoolSlot int64 = 0

type Chore struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Reward         decimal.Decimal `json:"reward"`
	IsRangeReward  bool            `json:"is_range_reward"`
	MinReward      decimal.Decimal `json:"min_reward"`
	MaxReward      decimal.Decimal `json:"max_reward"`
	IsRecurring    bool            `json:"is_recurring"`
	CooldownDays   int             `json:"cooldown_days"`
	IsDisabled     bool            `json:"is_disabled"`
	AssignmentMode AssignmentMode  `json:"assignment_mode"`
	CreatorID      int64           `json:"creator_id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type AssignmentState string

const (
	StateAssigned  AssignmentState = "assigned"
	StateCompleted AssignmentState = "completed"
	StateApproved  AssignmentState = "approved"
	StateRejected  AssignmentState = "rejected"
)

// Assignment is one child's cycle of one chore.
type Assignment struct {
	ID              int64            `json:"id"`
	ChoreID         int64            `json:"chore_id"`
	ChildID         int64            `json:"child_id"`
	Slot            int64            `json:"-"`
	Cycle           int              `json:"cycle"`
	CompletedAt     *time.Time       `json:"completed_at"`
	ApprovedAt      *time.Time       `json:"approved_at"`
	ApprovalReward  *decimal.Decimal `json:"approval_reward"`
	RejectionReason *string          `json:"rejection_reason"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// State derives the lifecycle state from the persisted timestamps.
func (a Assignment) State() AssignmentState {
	switch {
	case a.ApprovedAt != nil:
		return StateApproved
	case a.CompletedAt != nil:
		return StateCompleted
	case a.RejectionReason != nil:
		return StateRejected
	default:
		return StateAssigned
	}
}

func (a Assignment) MarshalJSON() ([]byte, error) {
	type plain Assignment
	return json.Marshal(struct {
		plain
		State AssignmentState `json:"state"`
	}{plain(a), a.State()})
}

// ChoreWithAssignments is a chore together with the current cycle of each of its slots.
type ChoreWithAssignments struct {
	Chore
	Assignments []Assignment `json:"assignments"`
}

// AssignmentWithChore pairs a cycle row with the chore that defines its reward policy.
type AssignmentWithChore struct {
	Assignment Assignment `json:"assignment"`
	Chore      Chore      `json:"chore"`
}

// PendingApproval is a completed assignment joined with its chore and child for review lists.
type PendingApproval struct {
	Assignment Assignment `json:"assignment"`
	Chore      Chore      `json:"chore"`
	ChildName  string     `json:"child_username"`
}
