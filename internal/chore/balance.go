package chore

import (
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/shopspring/decimal"
)

// Summarize computes a child's allowance from every cycle row credited to the
// child and every adjustment targeting the child.
func Summarize(child model.User, rows []model.AssignmentWithChore, adjustments []model.Adjustment) model.AllowanceSummary {
	s := model.AllowanceSummary{
		ChildID:            child.ID,
		Username:           child.Username,
		TotalEarned:        decimal.Zero,
		TotalAdjustments:   decimal.Zero,
		PaidOut:            decimal.Zero,
		PendingChoresValue: decimal.Zero,
	}

	for _, r := range rows {
		switch r.Assignment.State() {
		case model.StateApproved:
			s.CompletedChores++
			if r.Assignment.ApprovalReward != nil {
				s.TotalEarned = s.TotalEarned.Add(*r.Assignment.ApprovalReward)
			}
		case model.StateCompleted:
			s.PendingChoresValue = s.PendingChoresValue.Add(EstimateReward(r.Chore))
		}
	}

	for _, adj := range adjustments {
		if adj.Kind == model.KindPayout {
			s.PaidOut = s.PaidOut.Add(adj.Amount)
			continue
		}
		s.TotalAdjustments = s.TotalAdjustments.Add(adj.Amount)
	}

	s.Balance = s.TotalEarned.Add(s.TotalAdjustments).Sub(s.PaidOut)
	return s
}
