package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/chorechart/internal/model"
)

func TestAssignmentLifecycle(t *testing.T) {
	s := setupTestStores(t)
	ctx := context.Background()
	mom := createParent(t, s.users, "mom")
	amy := createChild(t, s.users, "amy", mom)
	c := createTestChore(t, s.chores, "Dishes", model.ModeSingle, mom)

	a, err := s.assignments.Create(ctx, model.Assignment{ChoreID: c.ID, ChildID: amy, Slot: amy, Cycle: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.State() != model.StateAssigned {
		t.Fatalf("state = %q, want assigned", a.State())
	}

	now := time.Now().UTC()
	if err := s.assignments.MarkCompleted(ctx, a.ID, amy, now); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if err := s.assignments.MarkCompleted(ctx, a.ID, amy, now); !errors.Is(err, ErrStale) {
		t.Fatalf("second completion err = %v, want ErrStale", err)
	}

	if err := s.assignments.Reject(ctx, a.ID, "still dirty"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, _ := s.assignments.GetByID(ctx, a.ID)
	if got.State() != model.StateRejected {
		t.Fatalf("state = %q, want rejected", got.State())
	}
	if got.RejectionReason == nil || *got.RejectionReason != "still dirty" {
		t.Errorf("rejection_reason = %v", got.RejectionReason)
	}

	if err := s.assignments.MarkCompleted(ctx, a.ID, amy, now); err != nil {
		t.Fatalf("redo: %v", err)
	}
	got, _ = s.assignments.GetByID(ctx, a.ID)
	if got.RejectionReason != nil {
		t.Error("expected rejection reason cleared on redo")
	}

	if err := s.assignments.Approve(ctx, a.ID, decimal.RequireFromString("12.50"), now); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := s.assignments.Approve(ctx, a.ID, decimal.RequireFromString("1"), now); !errors.Is(err, ErrStale) {
		t.Fatalf("second approve err = %v, want ErrStale", err)
	}
	got, _ = s.assignments.GetByID(ctx, a.ID)
	if got.State() != model.StateApproved {
		t.Fatalf("state = %q, want approved", got.State())
	}
	if got.ApprovalReward == nil || got.ApprovalReward.String() != "12.5" {
		t.Errorf("approval_reward = %v, want 12.5", got.ApprovalReward)
	}
}

func TestAssignmentDuplicateSlotCycle(t *testing.T) {
	s := setupTestStores(t)
	ctx := context.Background()
	mom := createParent(t, s.users, "mom")
	amy := createChild(t, s.users, "amy", mom)
	bob := createChild(t, s.users, "bob", mom)
	c := createTestChore(t, s.chores, "Windows", model.ModeUnassigned, mom)

	now := time.Now().UTC()
	if _, err := s.assignments.Create(ctx, model.Assignment{ChoreID: c.ID, ChildID: amy, Slot: model.PoolSlot, Cycle: 1, CompletedAt: &now}); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	_, err := s.assignments.Create(ctx, model.Assignment{ChoreID: c.ID, ChildID: bob, Slot: model.PoolSlot, Cycle: 1, CompletedAt: &now})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second claim err = %v, want ErrDuplicate", err)
	}
}

func TestAssignmentLatestForSlot(t *testing.T) {
	s := setupTestStores(t)
	ctx := context.Background()
	mom := createParent(t, s.users, "mom")
	amy := createChild(t, s.users, "amy", mom)
	c := createTestChore(t, s.chores, "Dishes", model.ModeSingle, mom)

	latest, err := s.assignments.LatestForSlot(ctx, c.ID, amy)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != nil {
		t.Fatal("expected nil before any cycle")
	}

	for cycle := 1; cycle <= 3; cycle++ {
		if _, err := s.assignments.Create(ctx, model.Assignment{ChoreID: c.ID, ChildID: amy, Slot: amy, Cycle: cycle}); err != nil {
			t.Fatalf("create cycle %d: %v", cycle, err)
		}
	}
	latest, err = s.assignments.LatestForSlot(ctx, c.ID, amy)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Cycle != 3 {
		t.Errorf("cycle = %d, want 3", latest.Cycle)
	}

	all, err := s.assignments.ListByChore(ctx, c.ID)
	if err != nil {
		t.Fatalf("list by chore: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 rows, got %d", len(all))
	}
}

func TestAssignmentDeleteOpenForChild(t *testing.T) {
	s := setupTestStores(t)
	ctx := context.Background()
	mom := createParent(t, s.users, "mom")
	amy := createChild(t, s.users, "amy", mom)
	c := createTestChore(t, s.chores, "Dishes", model.ModeSingle, mom)

	now := time.Now().UTC()
	done, _ := s.assignments.Create(ctx, model.Assignment{ChoreID: c.ID, ChildID: amy, Slot: amy, Cycle: 1, CompletedAt: &now})
	open, _ := s.assignments.Create(ctx, model.Assignment{ChoreID: c.ID, ChildID: amy, Slot: amy, Cycle: 2})

	if err := s.assignments.DeleteOpenForChild(ctx, c.ID, amy); err != nil {
		t.Fatalf("delete open: %v", err)
	}
	if got, _ := s.assignments.GetByID(ctx, open.ID); got != nil {
		t.Error("expected open row removed")
	}
	if got, _ := s.assignments.GetByID(ctx, done.ID); got == nil {
		t.Error("expected completed row kept")
	}
}

func TestAssignmentPendingAndChildListing(t *testing.T) {
	s := setupTestStores(t)
	ctx := context.Background()
	mom := createParent(t, s.users, "mom")
	dad := createParent(t, s.users, "dad")
	amy := createChild(t, s.users, "amy", mom)
	bob := createChild(t, s.users, "bob", dad)
	mine := createTestChore(t, s.chores, "Dishes", model.ModeSingle, mom)
	theirs := createTestChore(t, s.chores, "Trash", model.ModeSingle, dad)

	now := time.Now().UTC()
	s.assignments.Create(ctx, model.Assignment{ChoreID: mine.ID, ChildID: amy, Slot: amy, Cycle: 1, CompletedAt: &now})
	s.assignments.Create(ctx, model.Assignment{ChoreID: theirs.ID, ChildID: bob, Slot: bob, Cycle: 1, CompletedAt: &now})

	pending, err := s.assignments.ListPendingForCreator(ctx, mom)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(pending))
	}
	if pending[0].ChildName != "amy" || pending[0].Chore.Title != "Dishes" {
		t.Errorf("pending = %+v", pending[0])
	}
	if pending[0].Chore.AssignmentMode != model.ModeSingle {
		t.Errorf("mode = %q", pending[0].Chore.AssignmentMode)
	}

	rows, err := s.assignments.ListWithChoreForChild(ctx, amy)
	if err != nil {
		t.Fatalf("list child rows: %v", err)
	}
	if len(rows) != 1 || rows[0].Chore.ID != mine.ID {
		t.Errorf("rows = %+v", rows)
	}
	if rows[0].Assignment.State() != model.StateCompleted {
		t.Errorf("state = %q, want completed", rows[0].Assignment.State())
	}
}

func TestAssignmentCreateMySQLDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO chore_assignments").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	as := NewAssignmentStore(db)
	_, err = as.Create(context.Background(), model.Assignment{ChoreID: 1, ChildID: 2, Slot: model.PoolSlot, Cycle: 1})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
