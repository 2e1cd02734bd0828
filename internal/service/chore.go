package service

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/chorechart/internal/apperr"
	"github.com/dukerupert/chorechart/internal/auth"
	"github.com/dukerupert/chorechart/internal/chore"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/store"
)

type ChoreInput struct {
	Title          string               `json:"title" validate:"required,min=1,max=255"`
	Description    string               `json:"description" validate:"max=2000"`
	Reward         decimal.Decimal      `json:"reward"`
	IsRangeReward  bool                 `json:"is_range_reward"`
	MinReward      decimal.Decimal      `json:"min_reward"`
	MaxReward      decimal.Decimal      `json:"max_reward"`
	IsRecurring    bool                 `json:"is_recurring"`
	CooldownDays   int                  `json:"cooldown_days" validate:"min=0,max=365"`
	AssignmentMode model.AssignmentMode `json:"assignment_mode" validate:"required,oneof=single multi_independent unassigned"`
	AssigneeIDs    []int64              `json:"assignee_ids"`
}

// ChoreUpdate changes only the fields that are set. AssigneeIDs replaces the
// assignee set when non-nil.
type ChoreUpdate struct {
	Title          *string               `json:"title" validate:"omitempty,min=1,max=255"`
	Description    *string               `json:"description" validate:"omitempty,max=2000"`
	Reward         *decimal.Decimal      `json:"reward"`
	IsRangeReward  *bool                 `json:"is_range_reward"`
	MinReward      *decimal.Decimal      `json:"min_reward"`
	MaxReward      *decimal.Decimal      `json:"max_reward"`
	IsRecurring    *bool                 `json:"is_recurring"`
	CooldownDays   *int                  `json:"cooldown_days" validate:"omitempty,min=0,max=365"`
	AssignmentMode *model.AssignmentMode `json:"assignment_mode" validate:"omitempty,oneof=single multi_independent unassigned"`
	AssigneeIDs    []int64               `json:"assignee_ids"`
}

type ApproveInput struct {
	AssignmentID *int64           `json:"assignment_id"`
	RewardValue  *decimal.Decimal `json:"reward_value"`
}

type RejectInput struct {
	AssignmentID    *int64 `json:"assignment_id"`
	RejectionReason string `json:"rejection_reason" validate:"required,min=1,max=500"`
}

// DeleteResult tells whether a delete removed the chore or only disabled it
// because completion history exists.
type DeleteResult struct {
	Deleted  bool `json:"deleted"`
	Disabled bool `json:"disabled"`
}

// ChoreService runs chore lifecycle operations. Every mutation runs in one
// transaction; the stores it builds inside Transact are bound to that tx.
type ChoreService struct {
	db          *sql.DB
	chores      *store.ChoreStore
	assignments *store.AssignmentStore
	users       *store.UserStore
	clock       Clock
}

func NewChoreService(db *sql.DB, clock Clock) *ChoreService {
	return &ChoreService{
		db:          db,
		chores:      store.NewChoreStore(db),
		assignments: store.NewAssignmentStore(db),
		users:       store.NewUserStore(db),
		clock:       clock,
	}
}

type txStores struct {
	chores      *store.ChoreStore
	assignments *store.AssignmentStore
}

func (s *ChoreService) transact(ctx context.Context, fn func(ts txStores) error) error {
	return store.Transact(ctx, s.db, func(tx *sql.Tx) error {
		return fn(txStores{
			chores:      store.NewChoreStore(tx),
			assignments: store.NewAssignmentStore(tx),
		})
	})
}

// Create defines a chore and fans it out to its target children.
func (s *ChoreService) Create(ctx context.Context, p auth.Principal, in ChoreInput) (*model.ChoreWithAssignments, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	c := model.Chore{
		Title:          in.Title,
		Description:    in.Description,
		Reward:         in.Reward,
		IsRangeReward:  in.IsRangeReward,
		MinReward:      in.MinReward,
		MaxReward:      in.MaxReward,
		IsRecurring:    in.IsRecurring,
		CooldownDays:   in.CooldownDays,
		AssignmentMode: in.AssignmentMode,
		CreatorID:      p.UserID,
	}
	normalizePolicy(&c)
	if err := chore.ValidatePolicy(c); err != nil {
		return nil, err
	}
	targets, err := chore.PlanTargets(c.AssignmentMode, in.AssigneeIDs)
	if err != nil {
		return nil, err
	}
	if err := activeChildrenOf(ctx, s.users, p, targets); err != nil {
		return nil, err
	}

	var created *model.Chore
	err = s.transact(ctx, func(ts txStores) error {
		var err error
		created, err = ts.chores.Create(ctx, c)
		if err != nil {
			return err
		}
		return fanOut(ctx, ts, *created, targets)
	})
	if err != nil {
		return nil, err
	}
	return s.withAssignments(ctx, *created, nil)
}

// fanOut registers each target and opens its first cycle.
func fanOut(ctx context.Context, ts txStores, c model.Chore, targets []int64) error {
	for _, childID := range targets {
		if err := ts.chores.AddAssignee(ctx, c.ID, childID); err != nil {
			return err
		}
		latest, err := ts.assignments.LatestForSlot(ctx, c.ID, chore.SlotFor(c.AssignmentMode, childID))
		if err != nil {
			return err
		}
		if latest != nil {
			// Re-added child keeps their history; the gate governs the next cycle.
			continue
		}
		if _, err := ts.assignments.Create(ctx, model.Assignment{
			ChoreID: c.ID,
			ChildID: childID,
			Slot:    chore.SlotFor(c.AssignmentMode, childID),
			Cycle:   1,
		}); err != nil {
			return err
		}
	}
	return nil
}

// normalizePolicy zeroes the fields the active reward policy ignores.
func normalizePolicy(c *model.Chore) {
	if c.IsRangeReward {
		c.Reward = decimal.Zero
	} else {
		c.MinReward = decimal.Zero
		c.MaxReward = decimal.Zero
	}
}

// Get returns a chore with the current cycle of every slot the caller may see.
func (s *ChoreService) Get(ctx context.Context, p auth.Principal, id int64) (*model.ChoreWithAssignments, error) {
	c, err := s.loadVisible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.withAssignments(ctx, *c, &p)
}

// List returns a parent's created chores, or a child's assigned and pool chores.
func (s *ChoreService) List(ctx context.Context, p auth.Principal) ([]model.ChoreWithAssignments, error) {
	var chores []model.Chore
	var err error
	if p.IsParent() {
		chores, err = s.chores.ListByCreator(ctx, p.UserID)
	} else {
		chores, err = s.chores.ListForChild(ctx, p.UserID, p.FamilyID)
	}
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, chores, &p)
}

// Available returns the chores the child could complete right now.
func (s *ChoreService) Available(ctx context.Context, p auth.Principal) ([]model.ChoreWithAssignments, error) {
	chores, err := s.chores.ListForChild(ctx, p.UserID, p.FamilyID)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	var open []model.Chore
	for _, c := range chores {
		latest, err := s.assignments.LatestForSlot(ctx, c.ID, chore.SlotFor(c.AssignmentMode, p.UserID))
		if err != nil {
			return nil, err
		}
		if _, err := decide(c, latest, p.UserID, now); err == nil {
			open = append(open, c)
		}
	}
	return s.expand(ctx, open, &p)
}

// PendingApproval lists completions awaiting the parent's review.
func (s *ChoreService) PendingApproval(ctx context.Context, p auth.Principal) ([]model.PendingApproval, error) {
	pending, err := s.assignments.ListPendingForCreator(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		pending = []model.PendingApproval{}
	}
	return pending, nil
}

// ChildChores returns the chores one child of the parent is or was assigned to,
// with only that child's rows.
func (s *ChoreService) ChildChores(ctx context.Context, p auth.Principal, childID int64) ([]model.ChoreWithAssignments, error) {
	child, err := childOf(ctx, s.users, p, childID)
	if err != nil {
		return nil, err
	}
	chores, err := s.chores.ListWithRowsForChild(ctx, child.ID)
	if err != nil {
		return nil, err
	}
	view := principalOf(child)
	out, err := s.expand(ctx, chores, &view)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Assignments = slices.DeleteFunc(out[i].Assignments, func(a model.Assignment) bool {
			return a.ChildID != child.ID
		})
	}
	return out, nil
}

func (s *ChoreService) Update(ctx context.Context, p auth.Principal, id int64, in ChoreUpdate) (*model.ChoreWithAssignments, error) {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	c, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.assignments.ListByChore(ctx, id)
	if err != nil {
		return nil, err
	}
	current, err := s.chores.ListAssignees(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *c
	applyUpdate(&next, in)
	if c.IsRecurring && !next.IsRecurring && in.CooldownDays == nil {
		next.CooldownDays = 0
	}
	normalizePolicy(&next)
	if err := chore.ValidatePolicy(next); err != nil {
		return nil, err
	}

	modeChanged := next.AssignmentMode != c.AssignmentMode
	if modeChanged && chore.EverCompleted(rows) {
		return nil, apperr.InvalidState("cannot change assignment mode after the chore has been completed")
	}
	desired := current
	if in.AssigneeIDs != nil {
		desired = in.AssigneeIDs
	} else if modeChanged && next.AssignmentMode == model.ModeUnassigned {
		desired = nil
	}
	var targets []int64
	if in.AssigneeIDs != nil || modeChanged {
		if targets, err = chore.PlanTargets(next.AssignmentMode, desired); err != nil {
			return nil, err
		}
		if err := activeChildrenOf(ctx, s.users, p, chore.DiffAssignees(current, targets).Add); err != nil {
			return nil, err
		}
	} else {
		targets = current
	}

	var updated *model.Chore
	err = s.transact(ctx, func(ts txStores) error {
		var err error
		if updated, err = ts.chores.Update(ctx, next); err != nil {
			return err
		}
		if modeChanged {
			// Nothing was ever completed, so the old rows carry no history.
			if err := ts.assignments.DeleteByChore(ctx, id); err != nil {
				return err
			}
			for _, childID := range current {
				if err := ts.chores.RemoveAssignee(ctx, id, childID); err != nil {
					return err
				}
			}
			return fanOut(ctx, ts, *updated, targets)
		}
		diff := chore.DiffAssignees(current, targets)
		for _, childID := range diff.Remove {
			if err := ts.chores.RemoveAssignee(ctx, id, childID); err != nil {
				return err
			}
			if err := ts.assignments.DeleteOpenForChild(ctx, id, childID); err != nil {
				return err
			}
		}
		return fanOut(ctx, ts, *updated, diff.Add)
	})
	if err != nil {
		return nil, err
	}
	return s.withAssignments(ctx, *updated, nil)
}

func applyUpdate(c *model.Chore, in ChoreUpdate) {
	if in.Title != nil {
		c.Title = *in.Title
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Reward != nil {
		c.Reward = *in.Reward
	}
	if in.IsRangeReward != nil {
		c.IsRangeReward = *in.IsRangeReward
	}
	if in.MinReward != nil {
		c.MinReward = *in.MinReward
	}
	if in.MaxReward != nil {
		c.MaxReward = *in.MaxReward
	}
	if in.IsRecurring != nil {
		c.IsRecurring = *in.IsRecurring
	}
	if in.CooldownDays != nil {
		c.CooldownDays = *in.CooldownDays
	}
	if in.AssignmentMode != nil {
		c.AssignmentMode = *in.AssignmentMode
	}
}

// Delete removes a chore that was never completed. A chore with completion
// history is disabled instead so earned balances keep their source rows.
func (s *ChoreService) Delete(ctx context.Context, p auth.Principal, id int64) (DeleteResult, error) {
	if _, err := s.loadOwned(ctx, p, id); err != nil {
		return DeleteResult{}, err
	}
	var res DeleteResult
	err := s.transact(ctx, func(ts txStores) error {
		rows, err := ts.assignments.ListByChore(ctx, id)
		if err != nil {
			return err
		}
		if chore.EverCompleted(rows) {
			res.Disabled = true
			_, err := ts.chores.SetDisabled(ctx, id, true)
			return err
		}
		res.Deleted = true
		return ts.chores.Delete(ctx, id)
	})
	return res, err
}

func (s *ChoreService) Disable(ctx context.Context, p auth.Principal, id int64) (*model.Chore, error) {
	return s.setDisabled(ctx, p, id, true)
}

func (s *ChoreService) Enable(ctx context.Context, p auth.Principal, id int64) (*model.Chore, error) {
	return s.setDisabled(ctx, p, id, false)
}

func (s *ChoreService) setDisabled(ctx context.Context, p auth.Principal, id int64, disabled bool) (*model.Chore, error) {
	if _, err := s.loadOwned(ctx, p, id); err != nil {
		return nil, err
	}
	return s.chores.SetDisabled(ctx, id, disabled)
}

// Complete records a child's completion. Pool chores are claimed and
// completed in one step.
func (s *ChoreService) Complete(ctx context.Context, p auth.Principal, id int64) (*model.Assignment, error) {
	now := s.clock.now()
	var done *model.Assignment
	err := s.transact(ctx, func(ts txStores) error {
		c, err := ts.chores.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil || c.CreatorID != p.FamilyID {
			return apperr.NotFound("chore not found")
		}
		if c.AssignmentMode != model.ModeUnassigned {
			ok, err := ts.chores.IsAssignee(ctx, id, p.UserID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Forbidden("you are not assigned to this chore")
			}
		}

		slot := chore.SlotFor(c.AssignmentMode, p.UserID)
		latest, err := ts.assignments.LatestForSlot(ctx, id, slot)
		if err != nil {
			return err
		}
		decision, err := decide(*c, latest, p.UserID, now)
		if err != nil {
			return err
		}

		switch decision {
		case chore.CompleteInPlace:
			err := ts.assignments.MarkCompleted(ctx, latest.ID, p.UserID, now)
			if errors.Is(err, store.ErrStale) {
				return apperr.Conflict("chore was updated concurrently, try again")
			}
			if err != nil {
				return err
			}
			done, err = ts.assignments.GetByID(ctx, latest.ID)
			return err
		default:
			cycle := 1
			if latest != nil {
				cycle = latest.Cycle + 1
			}
			done, err = ts.assignments.Create(ctx, model.Assignment{
				ChoreID:     id,
				ChildID:     p.UserID,
				Slot:        slot,
				Cycle:       cycle,
				CompletedAt: &now,
			})
			if errors.Is(err, store.ErrDuplicate) {
				if c.AssignmentMode == model.ModeUnassigned {
					return apperr.Conflict("chore has already been claimed by another child")
				}
				return apperr.Conflict("chore was updated concurrently, try again")
			}
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

// decide applies the claim rule to pool chores and the cooldown gate to the rest.
func decide(c model.Chore, latest *model.Assignment, childID int64, now time.Time) (chore.Decision, error) {
	if c.AssignmentMode == model.ModeUnassigned {
		return chore.Claim(c, latest, childID, now)
	}
	return chore.Gate(c, latest, now)
}

// Approve credits a completion. Approval is allowed on disabled chores so
// completions recorded before disabling can still be paid.
func (s *ChoreService) Approve(ctx context.Context, p auth.Principal, id int64, in ApproveInput) (*model.Assignment, error) {
	c, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	var approved *model.Assignment
	err = s.transact(ctx, func(ts txStores) error {
		a, err := reviewTarget(ctx, ts, id, in.AssignmentID)
		if err != nil {
			return err
		}
		reward, err := chore.ResolveReward(*c, in.RewardValue)
		if err != nil {
			return err
		}
		err = ts.assignments.Approve(ctx, a.ID, reward, now)
		if errors.Is(err, store.ErrStale) {
			return apperr.Conflict("assignment was reviewed concurrently")
		}
		if err != nil {
			return err
		}
		approved, err = ts.assignments.GetByID(ctx, a.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Reject returns a completion to the child with a reason; the child may redo it.
func (s *ChoreService) Reject(ctx context.Context, p auth.Principal, id int64, in RejectInput) (*model.Assignment, error) {
	in.RejectionReason = strings.TrimSpace(in.RejectionReason)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if _, err := s.loadOwned(ctx, p, id); err != nil {
		return nil, err
	}
	var rejected *model.Assignment
	err := s.transact(ctx, func(ts txStores) error {
		a, err := reviewTarget(ctx, ts, id, in.AssignmentID)
		if err != nil {
			return err
		}
		err = ts.assignments.Reject(ctx, a.ID, in.RejectionReason)
		if errors.Is(err, store.ErrStale) {
			return apperr.Conflict("assignment was reviewed concurrently")
		}
		if err != nil {
			return err
		}
		rejected, err = ts.assignments.GetByID(ctx, a.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// reviewTarget picks the row an approve or reject applies to. Without an
// explicit id the chore must have exactly one completion awaiting review.
func reviewTarget(ctx context.Context, ts txStores, choreID int64, assignmentID *int64) (*model.Assignment, error) {
	if assignmentID != nil {
		a, err := ts.assignments.GetByID(ctx, *assignmentID)
		if err != nil {
			return nil, err
		}
		if a == nil || a.ChoreID != choreID {
			return nil, apperr.NotFound("assignment not found")
		}
		switch a.State() {
		case model.StateApproved:
			return nil, apperr.ErrAlreadyApproved
		case model.StateCompleted:
			return a, nil
		default:
			return nil, apperr.ErrNotCompleted
		}
	}

	rows, err := ts.assignments.ListByChore(ctx, choreID)
	if err != nil {
		return nil, err
	}
	var pending []model.Assignment
	approved := false
	for _, a := range chore.LatestBySlot(rows) {
		switch a.State() {
		case model.StateCompleted:
			pending = append(pending, a)
		case model.StateApproved:
			approved = true
		}
	}
	switch {
	case len(pending) == 1:
		return &pending[0], nil
	case len(pending) > 1:
		return nil, apperr.Validation("assignment_id is required when several completions await approval")
	case approved:
		return nil, apperr.ErrAlreadyApproved
	default:
		return nil, apperr.ErrNotCompleted
	}
}

// loadOwned loads a chore the parent created.
func (s *ChoreService) loadOwned(ctx context.Context, p auth.Principal, id int64) (*model.Chore, error) {
	c, err := s.chores.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("chore not found")
	}
	if c.CreatorID != p.UserID {
		return nil, apperr.Forbidden("not authorized to modify this chore")
	}
	return c, nil
}

// loadVisible loads a chore the caller may view: the creator, an assignee,
// a child with history on it, or any child of the family for pool chores.
func (s *ChoreService) loadVisible(ctx context.Context, p auth.Principal, id int64) (*model.Chore, error) {
	c, err := s.chores.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("chore not found")
	}
	if p.IsParent() {
		if c.CreatorID != p.UserID {
			return nil, apperr.Forbidden("not authorized to view this chore")
		}
		return c, nil
	}
	if c.CreatorID != p.FamilyID {
		return nil, apperr.Forbidden("not authorized to view this chore")
	}
	if c.AssignmentMode == model.ModeUnassigned {
		return c, nil
	}
	ok, err := s.chores.IsAssignee(ctx, id, p.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		rows, err := s.assignments.ListByChore(ctx, id)
		if err != nil {
			return nil, err
		}
		ok = slices.ContainsFunc(rows, func(a model.Assignment) bool { return a.ChildID == p.UserID })
	}
	if !ok {
		return nil, apperr.Forbidden("not authorized to view this chore")
	}
	return c, nil
}

func (s *ChoreService) expand(ctx context.Context, chores []model.Chore, viewer *auth.Principal) ([]model.ChoreWithAssignments, error) {
	out := make([]model.ChoreWithAssignments, 0, len(chores))
	for _, c := range chores {
		cwa, err := s.withAssignments(ctx, c, viewer)
		if err != nil {
			return nil, err
		}
		out = append(out, *cwa)
	}
	return out, nil
}

// withAssignments attaches the latest cycle of each slot. A child viewer sees
// only their own slot, plus the pool slot.
func (s *ChoreService) withAssignments(ctx context.Context, c model.Chore, viewer *auth.Principal) (*model.ChoreWithAssignments, error) {
	rows, err := s.assignments.ListByChore(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	cwa := &model.ChoreWithAssignments{Chore: c, Assignments: []model.Assignment{}}
	for _, a := range chore.LatestBySlot(rows) {
		if viewer != nil && !viewer.IsParent() && a.Slot != model.PoolSlot && a.ChildID != viewer.UserID {
			continue
		}
		cwa.Assignments = append(cwa.Assignments, a)
	}
	slices.SortFunc(cwa.Assignments, func(a, b model.Assignment) int {
		switch {
		case a.Slot < b.Slot:
			return -1
		case a.Slot > b.Slot:
			return 1
		}
		return 0
	})
	return cwa, nil
}
