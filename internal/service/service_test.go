package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/chorechart/internal/apperr"
	"github.com/dukerupert/chorechart/internal/auth"
	"github.com/dukerupert/chorechart/internal/database"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/store"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	db         *sql.DB
	clock      *fakeClock
	chores     *ChoreService
	allowances *AllowanceService
	users      *UserService
	parent     auth.Principal
	amy        auth.Principal
	bob        auth.Principal
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clk := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	f := &fixture{
		db:         db,
		clock:      clk,
		chores:     NewChoreService(db, clk.Now),
		allowances: NewAllowanceService(db),
		users:      NewUserService(db, auth.NewTokenIssuer("test-secret", 0)),
	}
	f.parent = f.addUser(t, "mom", true, nil)
	f.amy = f.addUser(t, "amy", false, &f.parent.UserID)
	f.bob = f.addUser(t, "bob", false, &f.parent.UserID)
	return f
}

// addUser inserts directly through the store to skip bcrypt.
func (f *fixture) addUser(t *testing.T, username string, isParent bool, parentID *int64) auth.Principal {
	t.Helper()
	u, err := store.NewUserStore(f.db).Create(context.Background(), username, "x", isParent, parentID)
	require.NoError(t, err)
	return principalOf(u)
}

func (f *fixture) createChore(t *testing.T, in ChoreInput) *model.ChoreWithAssignments {
	t.Helper()
	if in.AssignmentMode == "" {
		in.AssignmentMode = model.ModeSingle
	}
	if in.Title == "" {
		in.Title = "Dishes"
	}
	c, err := f.chores.Create(context.Background(), f.parent, in)
	require.NoError(t, err)
	return c
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "err = %v", err)
}

func (f *fixture) summary(t *testing.T, child auth.Principal) model.AllowanceSummary {
	t.Helper()
	s, err := f.allowances.ChildSummary(context.Background(), f.parent, child.UserID)
	require.NoError(t, err)
	return s
}
