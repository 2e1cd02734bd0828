package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/chorechart/internal/database"
	"github.com/dukerupert/chorechart/internal/model"
)

type testStores struct {
	users       *UserStore
	chores      *ChoreStore
	assignments *AssignmentStore
	adjustments *AdjustmentStore
}

func setupTestStores(t *testing.T) testStores {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return testStores{
		users:       NewUserStore(db),
		chores:      NewChoreStore(db),
		assignments: NewAssignmentStore(db),
		adjustments: NewAdjustmentStore(db),
	}
}

func createTestChore(t *testing.T, cs *ChoreStore, title string, mode model.AssignmentMode, creatorID int64) *model.Chore {
	t.Helper()
	c, err := cs.Create(context.Background(), model.Chore{
		Title:          title,
		Reward:         decimal.RequireFromString("5.00"),
		MinReward:      decimal.Zero,
		MaxReward:      decimal.Zero,
		AssignmentMode: mode,
		CreatorID:      creatorID,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return c
}

func TestChoreCreateAndGet(t *testing.T) {
	s := setupTestStores(t)
	ctx := context.Background()
	mom := createParent(t, s.users, "mom")

	c, err := s.chores.Create(ctx, model.Chore{
		Title:          "Mow lawn",
		Description:    "front and back",
		IsRangeReward:  true,
		Reward:         decimal.Zero,
		MinReward:      decimal.RequireFromString("5"),
		MaxReward:      decimal.RequireFromString("12.50"),
		IsRecurring:    true,
		CooldownDays:   7,
		AssignmentMode: model.ModeMultiIndependent,
		CreatorID:      mom,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	got, err := s.chores.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("get chore: %v", err)
	}
	if got.Title != "Mow lawn" {
		t.Errorf("title = %q, want %q", got.Title, "Mow lawn")
	}
	if !got.MaxReward.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("max_reward = %s, want 12.5", got.MaxReward)
	}
	if !got.IsRangeReward || !got.IsRecurring || got.CooldownDays != 7 {
		t.Errorf("policy not round-tripped: %+v", got)
	}
	if got.AssignmentMode != model.ModeMultiIndependent {
		t.Errorf("mode = %q, want %q", got.AssignmentMode, model.ModeMultiIndependent)
	}

	missing, err := s.chores.GetByID(ctx, 999)
	if err != nil {
		t.Fatalf("get missing chore: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing chore")
	}
}

func TestChoreUpdateAndDisable(t *testing.T) {
	s := setupTestStores(t)
	ctx := context.Background()
	mom := createParent(t, s.users, "mom")
	c := createTestChore(t, s.chores, "Dishes", model.ModeSingle, mom)

	c.Title = "Dishes and counters"
	c.Reward = decimal.RequireFromString("7.25")
	updated, err := s.chores.Update(ctx, *c)
	if err != nil {
		t.Fatalf("update chore: %v", err)
	}
	if updated.Title != "Dishes and counters" {
		t.Errorf("title = %q", updated.Title)
	}
	if !updated.Reward.Equal(decimal.RequireFromString("7.25")) {
		t.Errorf("reward = %s, want 7.25", updated.Reward)
	}

	disabled, err := s.chores.SetDisabled(ctx, c.ID, true)
	if err != nil {
		t.Fatalf("disable: %v", err)
	}
	if !disabled.IsDisabled {
		t.Error("expected disabled")
	}
}

func TestChoreListForChild(t *testing.T) {
	s := setupTestStores(t)
	ctx := context.Background()
	mom := createParent(t, s.users, "mom")
	dad := createParent(t, s.users, "dad")
	amy := createChild(t, s.users, "amy", mom)
	bob := createChild(t, s.users, "bob", mom)

	mine := createTestChore(t, s.chores, "Bed", model.ModeSingle, mom)
	theirs := createTestChore(t, s.chores, "Trash", model.ModeSingle, mom)
	createTestChore(t, s.chores, "Windows", model.ModeUnassigned, mom)
	createTestChore(t, s.chores, "Other pool", model.ModeUnassigned, dad)

	if err := s.chores.AddAssignee(ctx, mine.ID, amy); err != nil {
		t.Fatalf("add assignee: %v", err)
	}
	if err := s.chores.AddAssignee(ctx, theirs.ID, bob); err != nil {
		t.Fatalf("add assignee: %v", err)
	}

	chores, err := s.chores.ListForChild(ctx, amy, mom)
	if err != nil {
		t.Fatalf("list for child: %v", err)
	}
	if len(chores) != 2 {
		t.Fatalf("expected 2 chores, got %d", len(chores))
	}
	if chores[0].Title != "Bed" || chores[1].Title != "Windows" {
		t.Errorf("chores = %q, %q; want Bed, Windows", chores[0].Title, chores[1].Title)
	}
}

func TestChoreAssignees(t *testing.T) {
	s := setupTestStores(t)
	ctx := context.Background()
	mom := createParent(t, s.users, "mom")
	amy := createChild(t, s.users, "amy", mom)
	bob := createChild(t, s.users, "bob", mom)
	c := createTestChore(t, s.chores, "Dishes", model.ModeMultiIndependent, mom)

	for _, id := range []int64{bob, amy} {
		if err := s.chores.AddAssignee(ctx, c.ID, id); err != nil {
			t.Fatalf("add assignee: %v", err)
		}
	}
	ids, err := s.chores.ListAssignees(ctx, c.ID)
	if err != nil {
		t.Fatalf("list assignees: %v", err)
	}
	if len(ids) != 2 || ids[0] != amy || ids[1] != bob {
		t.Errorf("assignees = %v, want [%d %d]", ids, amy, bob)
	}

	if err := s.chores.RemoveAssignee(ctx, c.ID, amy); err != nil {
		t.Fatalf("remove assignee: %v", err)
	}
	ok, err := s.chores.IsAssignee(ctx, c.ID, amy)
	if err != nil {
		t.Fatalf("is assignee: %v", err)
	}
	if ok {
		t.Error("expected amy removed")
	}
}

func TestChoreDeleteCascades(t *testing.T) {
	s := setupTestStores(t)
	ctx := context.Background()
	mom := createParent(t, s.users, "mom")
	amy := createChild(t, s.users, "amy", mom)
	c := createTestChore(t, s.chores, "Dishes", model.ModeSingle, mom)

	if err := s.chores.AddAssignee(ctx, c.ID, amy); err != nil {
		t.Fatalf("add assignee: %v", err)
	}
	a, err := s.assignments.Create(ctx, model.Assignment{ChoreID: c.ID, ChildID: amy, Slot: amy, Cycle: 1})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	if err := s.chores.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete chore: %v", err)
	}
	got, err := s.assignments.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if got != nil {
		t.Error("expected assignment to cascade")
	}
	ids, err := s.chores.ListAssignees(ctx, c.ID)
	if err != nil {
		t.Fatalf("list assignees: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no assignees, got %v", ids)
	}
}
