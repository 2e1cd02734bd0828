package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dukerupert/chorechart/internal/model"
)

type AdjustmentStore struct {
	db DBTX
}

func NewAdjustmentStore(db DBTX) *AdjustmentStore {
	return &AdjustmentStore{db: db}
}

const adjustmentCols = `id, child_id, parent_id, amount, reason, kind, created_at`

func scanAdjustment(s scanner) (*model.Adjustment, error) {
	var a model.Adjustment
	var kind string
	if err := s.Scan(&a.ID, &a.ChildID, &a.ParentID, &a.Amount, &a.Reason, &kind, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Kind = model.AdjustmentKind(kind)
	return &a, nil
}

func (s *AdjustmentStore) Create(ctx context.Context, a model.Adjustment) (*model.Adjustment, error) {
	if a.Kind == "" {
		a.Kind = model.KindAdjustment
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO reward_adjustments (child_id, parent_id, amount, reason, kind, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ChildID, a.ParentID, a.Amount, a.Reason, string(a.Kind), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert adjustment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+adjustmentCols+` FROM reward_adjustments WHERE id = ?`, id)
	created, err := scanAdjustment(row)
	if err != nil {
		return nil, fmt.Errorf("get adjustment: %w", err)
	}
	return created, nil
}

// ListByChild returns a child's adjustments, newest first.
func (s *AdjustmentStore) ListByChild(ctx context.Context, childID int64) ([]model.Adjustment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+adjustmentCols+` FROM reward_adjustments WHERE child_id = ? ORDER BY created_at DESC, id DESC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var out []model.Adjustment
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
