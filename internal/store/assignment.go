package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/chorechart/internal/database"
	"github.com/dukerupert/chorechart/internal/model"
)

// AssignmentStore persists chore cycle rows. Each row is one child's (or one
// pool claimant's) cycle of a chore; UNIQUE(chore_id, slot, cycle) serializes
// concurrent claims.
type AssignmentStore struct {
	db DBTX
}

func NewAssignmentStore(db DBTX) *AssignmentStore {
	return &AssignmentStore{db: db}
}

const assignmentCols = `id, chore_id, child_id, slot, cycle, completed_at, approved_at, approval_reward, rejection_reason, created_at, updated_at`

const qualifiedAssignmentCols = `a.id, a.chore_id, a.child_id, a.slot, a.cycle, a.completed_at, a.approved_at, a.approval_reward, a.rejection_reason, a.created_at, a.updated_at`

func assignmentDest(a *model.Assignment, completed, approved *sql.NullTime, reward *decimal.NullDecimal, reason *sql.NullString) []any {
	return []any{
		&a.ID, &a.ChoreID, &a.ChildID, &a.Slot, &a.Cycle,
		completed, approved, reward, reason, &a.CreatedAt, &a.UpdatedAt,
	}
}

func fillAssignment(a *model.Assignment, completed, approved sql.NullTime, reward decimal.NullDecimal, reason sql.NullString) {
	if completed.Valid {
		t := completed.Time
		a.CompletedAt = &t
	}
	if approved.Valid {
		t := approved.Time
		a.ApprovedAt = &t
	}
	if reward.Valid {
		d := reward.Decimal
		a.ApprovalReward = &d
	}
	if reason.Valid {
		r := reason.String
		a.RejectionReason = &r
	}
}

func scanAssignment(s scanner) (*model.Assignment, error) {
	var a model.Assignment
	var completed, approved sql.NullTime
	var reward decimal.NullDecimal
	var reason sql.NullString
	if err := s.Scan(assignmentDest(&a, &completed, &approved, &reward, &reason)...); err != nil {
		return nil, err
	}
	fillAssignment(&a, completed, approved, reward, reason)
	return &a, nil
}

// Create inserts a cycle row. A collision on (chore, slot, cycle) returns ErrDuplicate.
func (s *AssignmentStore) Create(ctx context.Context, a model.Assignment) (*model.Assignment, error) {
	now := time.Now().UTC()
	var completed sql.NullTime
	if a.CompletedAt != nil {
		completed = sql.NullTime{Time: a.CompletedAt.UTC(), Valid: true}
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chore_assignments (chore_id, child_id, slot, cycle, completed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ChoreID, a.ChildID, a.Slot, a.Cycle, completed, now, now,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("insert assignment: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *AssignmentStore) GetByID(ctx context.Context, id int64) (*model.Assignment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assignmentCols+` FROM chore_assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// ListByChore returns every cycle row of a chore ordered by slot then cycle.
func (s *AssignmentStore) ListByChore(ctx context.Context, choreID int64) ([]model.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assignmentCols+` FROM chore_assignments WHERE chore_id = ? ORDER BY slot ASC, cycle ASC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// LatestForSlot returns the highest cycle of a slot, or nil if the slot has none.
func (s *AssignmentStore) LatestForSlot(ctx context.Context, choreID, slot int64) (*model.Assignment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assignmentCols+` FROM chore_assignments WHERE chore_id = ? AND slot = ? ORDER BY cycle DESC LIMIT 1`,
		choreID, slot,
	)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest assignment: %w", err)
	}
	return a, nil
}

// MarkCompleted records a completion on an open row and clears any prior
// rejection. Returns ErrStale if the row was already completed or approved.
func (s *AssignmentStore) MarkCompleted(ctx context.Context, id, childID int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE chore_assignments SET completed_at = ?, child_id = ?, rejection_reason = NULL, updated_at = ?
		 WHERE id = ? AND completed_at IS NULL AND approved_at IS NULL`,
		at.UTC(), childID, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return expectOneRow(result)
}

// Approve finalizes a completed row with the resolved reward.
func (s *AssignmentStore) Approve(ctx context.Context, id int64, reward decimal.Decimal, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE chore_assignments SET approved_at = ?, approval_reward = ?, updated_at = ?
		 WHERE id = ? AND completed_at IS NOT NULL AND approved_at IS NULL`,
		at.UTC(), reward, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("approve assignment: %w", err)
	}
	return expectOneRow(result)
}

// Reject returns a completed row to the child with a reason.
func (s *AssignmentStore) Reject(ctx context.Context, id int64, reason string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE chore_assignments SET completed_at = NULL, rejection_reason = ?, updated_at = ?
		 WHERE id = ? AND completed_at IS NOT NULL AND approved_at IS NULL`,
		reason, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("reject assignment: %w", err)
	}
	return expectOneRow(result)
}

// DeleteOpenForChild drops a child's rows that were neither completed nor
// approved. Used when the child is removed from a chore.
func (s *AssignmentStore) DeleteOpenForChild(ctx context.Context, choreID, childID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM chore_assignments WHERE chore_id = ? AND child_id = ? AND completed_at IS NULL AND approved_at IS NULL`,
		choreID, childID,
	)
	if err != nil {
		return fmt.Errorf("delete open assignments: %w", err)
	}
	return nil
}

func (s *AssignmentStore) DeleteByChore(ctx context.Context, choreID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chore_assignments WHERE chore_id = ?`, choreID)
	if err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	return nil
}

// ListPendingForCreator returns completed, unapproved rows on chores the
// parent created, oldest completion first.
func (s *AssignmentStore) ListPendingForCreator(ctx context.Context, creatorID int64) ([]model.PendingApproval, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+qualifiedAssignmentCols+`, `+qualifiedChoreCols+`, u.username
		 FROM chore_assignments a
		 JOIN chores c ON c.id = a.chore_id
		 JOIN users u ON u.id = a.child_id
		 WHERE c.creator_id = ? AND a.completed_at IS NOT NULL AND a.approved_at IS NULL
		 ORDER BY a.completed_at ASC, a.id ASC`,
		creatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var out []model.PendingApproval
	for rows.Next() {
		var p model.PendingApproval
		var completed, approved sql.NullTime
		var reward decimal.NullDecimal
		var reason sql.NullString
		var mode string
		dest := assignmentDest(&p.Assignment, &completed, &approved, &reward, &reason)
		dest = append(dest, choreDest(&p.Chore, &mode)...)
		dest = append(dest, &p.ChildName)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		fillAssignment(&p.Assignment, completed, approved, reward, reason)
		p.Chore.AssignmentMode = model.AssignmentMode(mode)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListWithChoreForChild returns every row the child holds, joined with its chore.
func (s *AssignmentStore) ListWithChoreForChild(ctx context.Context, childID int64) ([]model.AssignmentWithChore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+qualifiedAssignmentCols+`, `+qualifiedChoreCols+`
		 FROM chore_assignments a
		 JOIN chores c ON c.id = a.chore_id
		 WHERE a.child_id = ?
		 ORDER BY a.chore_id ASC, a.cycle ASC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list child assignments: %w", err)
	}
	defer rows.Close()

	var out []model.AssignmentWithChore
	for rows.Next() {
		var ac model.AssignmentWithChore
		var completed, approved sql.NullTime
		var reward decimal.NullDecimal
		var reason sql.NullString
		var mode string
		dest := assignmentDest(&ac.Assignment, &completed, &approved, &reward, &reason)
		dest = append(dest, choreDest(&ac.Chore, &mode)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan child assignment: %w", err)
		}
		fillAssignment(&ac.Assignment, completed, approved, reward, reason)
		ac.Chore.AssignmentMode = model.AssignmentMode(mode)
		out = append(out, ac)
	}
	return out, rows.Err()
}
