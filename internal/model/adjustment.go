package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AdjustmentKind string

const (
	KindAdjustment AdjustmentKind = "adjustment"
	KindPayout     AdjustmentKind = "payout"
)

type Adjustment struct {
	ID        int64           `json:"id"`
	ChildID   int64           `json:"child_id"`
	ParentID  int64           `json:"parent_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Kind      AdjustmentKind  `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
}

type AllowanceSummary struct {
	ChildID            int64           `json:"child_id"`
	Username           string          `json:"username"`
	CompletedChores    int             `json:"completed_chores"`
	TotalEarned        decimal.Decimal `json:"total_earned"`
	TotalAdjustments   decimal.Decimal `json:"total_adjustments"`
	PaidOut            decimal.Decimal `json:"paid_out"`
	PendingChoresValue decimal.Decimal `json:"pending_chores_value"`
	Balance            decimal.Decimal `json:"balance"`
}
