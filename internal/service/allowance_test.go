package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/chorechart/internal/apperr"
	"github.com/dukerupert/chorechart/internal/model"
)

func TestPenaltyAfterEarning(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.createChore(t, ChoreInput{Reward: dec("10"), AssigneeIDs: []int64{f.amy.UserID}})
	_, err := f.chores.Complete(ctx, f.amy, c.ID)
	require.NoError(t, err)
	_, err = f.chores.Approve(ctx, f.parent, c.ID, ApproveInput{})
	require.NoError(t, err)

	adj, err := f.allowances.CreateAdjustment(ctx, f.parent, AdjustmentInput{
		ChildID: f.amy.UserID,
		Amount:  dec("-5.00"),
		Reason:  "broke a window",
	})
	require.NoError(t, err)
	assert.Equal(t, model.KindAdjustment, adj.Kind)

	s := f.summary(t, f.amy)
	assert.True(t, s.TotalEarned.Equal(dec("10")))
	assert.True(t, s.TotalAdjustments.Equal(dec("-5")))
	assert.True(t, s.Balance.Equal(dec("5")))
}

func TestBalanceIdentityWithPayout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	pool := f.createChore(t, ChoreInput{Title: "Garage", IsRangeReward: true, MinReward: dec("1"), MaxReward: dec("8"), AssignmentMode: model.ModeUnassigned})
	_, err := f.chores.Complete(ctx, f.amy, pool.ID)
	require.NoError(t, err)
	_, err = f.chores.Approve(ctx, f.parent, pool.ID, ApproveInput{RewardValue: decPtr("6.25")})
	require.NoError(t, err)

	pending := f.createChore(t, ChoreInput{Title: "Yard", IsRangeReward: true, MinReward: dec("2"), MaxReward: dec("7"), AssigneeIDs: []int64{f.amy.UserID}})
	_, err = f.chores.Complete(ctx, f.amy, pending.ID)
	require.NoError(t, err)

	for _, in := range []AdjustmentInput{
		{ChildID: f.amy.UserID, Amount: dec("2"), Reason: "birthday"},
		{ChildID: f.amy.UserID, Amount: dec("3.25"), Reason: "cash", Kind: model.KindPayout},
	} {
		_, err := f.allowances.CreateAdjustment(ctx, f.parent, in)
		require.NoError(t, err)
	}

	s := f.summary(t, f.amy)
	assert.True(t, s.TotalEarned.Equal(dec("6.25")))
	assert.True(t, s.TotalAdjustments.Equal(dec("2")))
	assert.True(t, s.PaidOut.Equal(dec("3.25")))
	assert.True(t, s.PendingChoresValue.Equal(dec("7")))
	assert.True(t, s.Balance.Equal(s.TotalEarned.Add(s.TotalAdjustments).Sub(s.PaidOut)))
	assert.True(t, s.Balance.Equal(dec("5")))

	mine, err := f.allowances.MySummary(ctx, f.amy)
	require.NoError(t, err)
	assert.Equal(t, s, mine)

	all, err := f.allowances.Summaries(ctx, f.parent)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "amy", all[0].Username)
	assert.True(t, all[1].Balance.IsZero())
}

func TestAdjustmentValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other := f.addUser(t, "dad", true, nil)

	tests := map[string]AdjustmentInput{
		"zero":            {ChildID: f.amy.UserID, Amount: dec("0"), Reason: "nothing"},
		"too large":       {ChildID: f.amy.UserID, Amount: dec("1000"), Reason: "lottery"},
		"short reason":    {ChildID: f.amy.UserID, Amount: dec("1"), Reason: "ok"},
		"negative payout": {ChildID: f.amy.UserID, Amount: dec("-1"), Reason: "refund", Kind: model.KindPayout},
		"bad kind":        {ChildID: f.amy.UserID, Amount: dec("1"), Reason: "bonus", Kind: "gift"},
		"missing child":   {Amount: dec("1"), Reason: "bonus"},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.allowances.CreateAdjustment(ctx, f.parent, in)
			assertKind(t, err, apperr.KindValidation)
		})
	}

	_, err := f.allowances.CreateAdjustment(ctx, other, AdjustmentInput{ChildID: f.amy.UserID, Amount: dec("1"), Reason: "bribe"})
	assertKind(t, err, apperr.KindNotFound)
}

func TestListAdjustmentsAccess(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.allowances.CreateAdjustment(ctx, f.parent, AdjustmentInput{ChildID: f.amy.UserID, Amount: dec("1"), Reason: "bonus"})
	require.NoError(t, err)

	list, err := f.allowances.ListAdjustments(ctx, f.parent, f.amy.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.allowances.ListAdjustments(ctx, f.amy, f.amy.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.allowances.ListAdjustments(ctx, f.bob, f.amy.UserID)
	assertKind(t, err, apperr.KindForbidden)

	_, err = f.allowances.ChildSummary(ctx, f.parent, 9999)
	assertKind(t, err, apperr.KindNotFound)
}

func TestAdjustmentRejectsSubCentAmount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, amount := range []string{"0.001", "-2.505"} {
		_, err := f.allowances.CreateAdjustment(ctx, f.parent, AdjustmentInput{
			ChildID: f.amy.UserID,
			Amount:  dec(amount),
			Reason:  "rounding",
		})
		assertKind(t, err, apperr.KindValidation)
	}

	adjs, err := f.allowances.ListAdjustments(ctx, f.parent, f.amy.UserID)
	require.NoError(t, err)
	assert.Empty(t, adjs)
}

func TestChoreRewardRejectsSubCentAmounts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.chores.Create(ctx, f.parent, ChoreInput{Title: "Dust", Reward: dec("1.005"), AssignmentMode: model.ModeUnassigned})
	assertKind(t, err, apperr.KindValidation)

	_, err = f.chores.Create(ctx, f.parent, ChoreInput{
		Title:          "Mow",
		IsRangeReward:  true,
		MinReward:      dec("1"),
		MaxReward:      dec("4.999"),
		AssignmentMode: model.ModeUnassigned,
	})
	assertKind(t, err, apperr.KindValidation)

	c := f.createChore(t, ChoreInput{Title: "Sweep", Reward: dec("2"), AssignmentMode: model.ModeUnassigned})
	_, err = f.chores.Update(ctx, f.parent, c.ID, ChoreUpdate{Reward: decPtr("2.001")})
	assertKind(t, err, apperr.KindValidation)
}
