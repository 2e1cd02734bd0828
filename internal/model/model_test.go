package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestAssignmentState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reward := decimal.NewFromInt(5)
	reason := "missed a spot"

	tests := []struct {
		name string
		a    Assignment
		want AssignmentState
	}{
		{"fresh", Assignment{}, StateAssigned},
		{"completed", Assignment{CompletedAt: &now}, StateCompleted},
		{"approved", Assignment{CompletedAt: &now, ApprovedAt: &now, ApprovalReward: &reward}, StateApproved},
		{"rejected", Assignment{RejectionReason: &reason}, StateRejected},
		{"redone after rejection", Assignment{CompletedAt: &now, RejectionReason: &reason}, StateCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.State(); got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssignmentJSONIncludesState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := Assignment{ID: 7, ChoreID: 3, ChildID: 2, Slot: 2, Cycle: 1, CompletedAt: &now}

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"state":"completed"`) {
		t.Errorf("missing state in %s", s)
	}
	if strings.Contains(s, "slot") {
		t.Errorf("slot should not be serialized: %s", s)
	}
}
