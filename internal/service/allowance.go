package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/chorechart/internal/apperr"
	"github.com/dukerupert/chorechart/internal/auth"
	"github.com/dukerupert/chorechart/internal/chore"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/store"
)

var maxAdjustment = decimal.RequireFromString("999.99")

type AdjustmentInput struct {
	ChildID int64                `json:"child_id" validate:"required,gt=0"`
	Amount  decimal.Decimal      `json:"amount"`
	Reason  string               `json:"reason" validate:"required,min=3,max=500"`
	Kind    model.AdjustmentKind `json:"kind" validate:"omitempty,oneof=adjustment payout"`
}

// AllowanceService records manual balance changes and computes allowance
// summaries from persisted rows on every read.
type AllowanceService struct {
	users       *store.UserStore
	assignments *store.AssignmentStore
	adjustments *store.AdjustmentStore
}

func NewAllowanceService(db *sql.DB) *AllowanceService {
	return &AllowanceService{
		users:       store.NewUserStore(db),
		assignments: store.NewAssignmentStore(db),
		adjustments: store.NewAdjustmentStore(db),
	}
}

func (s *AllowanceService) CreateAdjustment(ctx context.Context, p auth.Principal, in AdjustmentInput) (*model.Adjustment, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Kind == "" {
		in.Kind = model.KindAdjustment
	}
	if in.Amount.IsZero() {
		return nil, apperr.Validation("amount must not be zero")
	}
	if !chore.WholeCents(in.Amount) {
		return nil, apperr.Validation("amount must have at most %d decimal places", chore.MoneyPlaces)
	}
	if in.Amount.Abs().GreaterThan(maxAdjustment) {
		return nil, apperr.Validation("amount must be between -%s and %s", maxAdjustment, maxAdjustment)
	}
	if in.Kind == model.KindPayout && in.Amount.IsNegative() {
		return nil, apperr.Validation("payout amount must be positive")
	}
	if _, err := childOf(ctx, s.users, p, in.ChildID); err != nil {
		return nil, err
	}
	return s.adjustments.Create(ctx, model.Adjustment{
		ChildID:  in.ChildID,
		ParentID: p.UserID,
		Amount:   in.Amount,
		Reason:   in.Reason,
		Kind:     in.Kind,
	})
}

// ListAdjustments is open to the child's parent and to the child.
func (s *AllowanceService) ListAdjustments(ctx context.Context, p auth.Principal, childID int64) ([]model.Adjustment, error) {
	if p.IsParent() {
		if _, err := childOf(ctx, s.users, p, childID); err != nil {
			return nil, err
		}
	} else if p.UserID != childID {
		return nil, apperr.Forbidden("not authorized to view these adjustments")
	}
	return s.adjustments.ListByChild(ctx, childID)
}

// Summaries returns one summary per child of the parent.
func (s *AllowanceService) Summaries(ctx context.Context, p auth.Principal) ([]model.AllowanceSummary, error) {
	children, err := s.users.ListChildren(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]model.AllowanceSummary, 0, len(children))
	for _, c := range children {
		sum, err := s.summarize(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *AllowanceService) ChildSummary(ctx context.Context, p auth.Principal, childID int64) (model.AllowanceSummary, error) {
	child, err := childOf(ctx, s.users, p, childID)
	if err != nil {
		return model.AllowanceSummary{}, err
	}
	return s.summarize(ctx, *child)
}

func (s *AllowanceService) MySummary(ctx context.Context, p auth.Principal) (model.AllowanceSummary, error) {
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return model.AllowanceSummary{}, err
	}
	if u == nil {
		return model.AllowanceSummary{}, apperr.NotFound("child not found")
	}
	return s.summarize(ctx, *u)
}

func (s *AllowanceService) summarize(ctx context.Context, child model.User) (model.AllowanceSummary, error) {
	rows, err := s.assignments.ListWithChoreForChild(ctx, child.ID)
	if err != nil {
		return model.AllowanceSummary{}, err
	}
	adjustments, err := s.adjustments.ListByChild(ctx, child.ID)
	if err != nil {
		return model.AllowanceSummary{}, err
	}
	return chore.Summarize(child, rows, adjustments), nil
}
