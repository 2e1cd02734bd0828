package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/chorechart/internal/model"
)

type ChoreStore struct {
	db DBTX
}

func NewChoreStore(db DBTX) *ChoreStore {
	return &ChoreStore{db: db}
}

func choreDest(c *model.Chore, mode *string) []any {
	return []any{
		&c.ID, &c.Title, &c.Description, &c.Reward, &c.IsRangeReward,
		&c.MinReward, &c.MaxReward, &c.IsRecurring, &c.CooldownDays,
		&c.IsDisabled, mode, &c.CreatorID, &c.CreatedAt, &c.UpdatedAt,
	}
}

func scanChore(s scanner) (*model.Chore, error) {
	var c model.Chore
	var mode string
	if err := s.Scan(choreDest(&c, &mode)...); err != nil {
		return nil, err
	}
	c.AssignmentMode = model.AssignmentMode(mode)
	return &c, nil
}

const choreCols = `id, title, description, reward, is_range_reward, min_reward, max_reward, is_recurring, cooldown_days, is_disabled, assignment_mode, creator_id, created_at, updated_at`

// qualifiedChoreCols is choreCols for queries joining chores as c.
const qualifiedChoreCols = `c.id, c.title, c.description, c.reward, c.is_range_reward, c.min_reward, c.max_reward, c.is_recurring, c.cooldown_days, c.is_disabled, c.assignment_mode, c.creator_id, c.created_at, c.updated_at`

func (s *ChoreStore) Create(ctx context.Context, c model.Chore) (*model.Chore, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chores (title, description, reward, is_range_reward, min_reward, max_reward, is_recurring, cooldown_days, is_disabled, assignment_mode, creator_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Title, c.Description, c.Reward, c.IsRangeReward, c.MinReward, c.MaxReward,
		c.IsRecurring, c.CooldownDays, c.IsDisabled, string(c.AssignmentMode), c.CreatorID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ChoreStore) GetByID(ctx context.Context, id int64) (*model.Chore, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) list(ctx context.Context, query string, args ...any) ([]model.Chore, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// ListByCreator returns every chore a parent created, disabled ones included.
func (s *ChoreStore) ListByCreator(ctx context.Context, creatorID int64) ([]model.Chore, error) {
	return s.list(ctx,
		`SELECT `+choreCols+` FROM chores WHERE creator_id = ? ORDER BY title ASC, id ASC`,
		creatorID,
	)
}

// ListForChild returns the chores a child is assigned to plus the pool chores
// created by the child's parent.
func (s *ChoreStore) ListForChild(ctx context.Context, childID, parentID int64) ([]model.Chore, error) {
	return s.list(ctx,
		`SELECT `+choreCols+` FROM chores
		 WHERE id IN (SELECT chore_id FROM chore_assignees WHERE child_id = ?)
		    OR (assignment_mode = ? AND creator_id = ?)
		 ORDER BY title ASC, id ASC`,
		childID, string(model.ModeUnassigned), parentID,
	)
}

// ListWithRowsForChild returns chores on which the child has at least one cycle row.
func (s *ChoreStore) ListWithRowsForChild(ctx context.Context, childID int64) ([]model.Chore, error) {
	return s.list(ctx,
		`SELECT `+choreCols+` FROM chores
		 WHERE id IN (SELECT chore_id FROM chore_assignments WHERE child_id = ?)
		    OR id IN (SELECT chore_id FROM chore_assignees WHERE child_id = ?)
		 ORDER BY title ASC, id ASC`,
		childID, childID,
	)
}

func (s *ChoreStore) Update(ctx context.Context, c model.Chore) (*model.Chore, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chores SET title = ?, description = ?, reward = ?, is_range_reward = ?, min_reward = ?, max_reward = ?,
		 is_recurring = ?, cooldown_days = ?, assignment_mode = ?, updated_at = ? WHERE id = ?`,
		c.Title, c.Description, c.Reward, c.IsRangeReward, c.MinReward, c.MaxReward,
		c.IsRecurring, c.CooldownDays, string(c.AssignmentMode), time.Now().UTC(), c.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(ctx, c.ID)
}

func (s *ChoreStore) SetDisabled(ctx context.Context, id int64, disabled bool) (*model.Chore, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chores SET is_disabled = ?, updated_at = ? WHERE id = ?`,
		disabled, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set chore disabled: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a chore; assignees and cycle rows cascade.
func (s *ChoreStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

// --- Assignee methods ---

func (s *ChoreStore) AddAssignee(ctx context.Context, choreID, childID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chore_assignees (chore_id, child_id, created_at) VALUES (?, ?, ?)`,
		choreID, childID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert assignee: %w", err)
	}
	return nil
}

func (s *ChoreStore) RemoveAssignee(ctx context.Context, choreID, childID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM chore_assignees WHERE chore_id = ? AND child_id = ?`,
		choreID, childID,
	)
	if err != nil {
		return fmt.Errorf("delete assignee: %w", err)
	}
	return nil
}

// ListAssignees returns child ids in ascending order.
func (s *ChoreStore) ListAssignees(ctx context.Context, choreID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT child_id FROM chore_assignees WHERE chore_id = ? ORDER BY child_id ASC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignees: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *ChoreStore) IsAssignee(ctx context.Context, choreID, childID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chore_assignees WHERE chore_id = ? AND child_id = ?`,
		choreID, childID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check assignee: %w", err)
	}
	return n > 0, nil
}
