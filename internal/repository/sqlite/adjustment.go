package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/repository"
)

var _ repository.AdjustmentRepository = (*AdjustmentDB)(nil)

// AdjustmentDB stores model adjustments.
//
// The tagged value is stored as (kind, value-text) and re-parsed through
// model.ParseAdjustmentValue on the way out, so a row can only come back as
// the concrete type its kind names.
type AdjustmentDB struct {
	db *DB
}

const adjustmentColumns = `id, kind, key, value, category, owner_id, active, priority, created_at`

func scanAdjustment(s scanner) (*model.Adjustment, error) {
	var (
		a        model.Adjustment
		kind     model.AdjustmentKind
		raw      string
		category sql.NullString
		owner    sql.NullString
	)
	if err := s.Scan(&a.ID, &kind, &a.Key, &raw, &category, &owner, &a.Active, &a.Priority, &a.CreatedAt); err != nil {
		return nil, err
	}

	v, err := model.ParseAdjustmentValue(kind, raw)
	if err != nil {
		return nil, fmt.Errorf("adjustment %s: %w", a.ID, err)
	}
	a.Value = v

	if category.Valid {
		c := model.Category(category.String)
		a.Category = &c
	}
	if owner.Valid {
		a.OwnerID = &owner.String
	}
	return &a, nil
}

func (s *AdjustmentDB) list(ctx context.Context, query string, args ...any) ([]model.Adjustment, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing adjustments: %w", err)
	}
	defer rows.Close()

	var out []model.Adjustment
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning adjustment row: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating adjustments: %w", err)
	}
	return out, nil
}

func (s *AdjustmentDB) Create(ctx context.Context, a *model.Adjustment) error {
	if a.Value == nil {
		return apperror.ValidationFailed("value", "adjustment value is required")
	}
	a.ID = xid.New().String()
	a.CreatedAt = time.Now().UTC()

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO adjustments (`+adjustmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Kind(), a.Key, a.Value.String(), a.Category, a.OwnerID, a.Active, a.Priority, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating adjustment: %w", err)
	}
	return nil
}

// Get returns an adjustment owned by ownerID. An empty ownerID addresses the
// system-wide adjustments.
func (s *AdjustmentDB) Get(ctx context.Context, ownerID, id string) (*model.Adjustment, error) {
	a, err := scanAdjustment(s.db.conn.QueryRowContext(ctx,
		`SELECT `+adjustmentColumns+` FROM adjustments WHERE id = ? AND owner_id IS ?`, id, ownerArg(ownerID),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("adjustment", id)
		}
		return nil, fmt.Errorf("sqlite: getting adjustment %s: %w", id, err)
	}
	return a, nil
}

// ownerArg maps "" to SQL NULL for the owner_id IS ? comparisons.
func ownerArg(ownerID string) any {
	if ownerID == "" {
		return nil
	}
	return ownerID
}

// List returns the caller's own and the system-wide adjustments, in
// rendering order.
func (s *AdjustmentDB) List(ctx context.Context, ownerID string) ([]model.Adjustment, error) {
	return s.list(ctx,
		`SELECT `+adjustmentColumns+` FROM adjustments
		 WHERE owner_id = ? OR owner_id IS NULL
		 ORDER BY priority DESC, created_at ASC, rowid ASC`,
		ownerID,
	)
}

func (s *AdjustmentDB) ListActive(ctx context.Context, ownerID string, category model.Category) ([]model.Adjustment, error) {
	return s.list(ctx,
		`SELECT `+adjustmentColumns+` FROM adjustments
		 WHERE active = 1
		   AND (category = ? OR category IS NULL)
		   AND (owner_id = ? OR owner_id IS NULL)
		 ORDER BY priority DESC, created_at ASC, rowid ASC`,
		category, ownerID,
	)
}

// Update saves every mutable field. A nil a.OwnerID targets a system-wide
// adjustment; otherwise only the owner's row matches.
func (s *AdjustmentDB) Update(ctx context.Context, a *model.Adjustment) error {
	if a.Value == nil {
		return apperror.ValidationFailed("value", "adjustment value is required")
	}

	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE adjustments
		 SET kind = ?, key = ?, value = ?, category = ?, active = ?, priority = ?
		 WHERE id = ? AND owner_id IS ?`,
		a.Kind(), a.Key, a.Value.String(), a.Category, a.Active, a.Priority,
		a.ID, a.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating adjustment %s: %w", a.ID, err)
	}
	return checkAffected(res, apperror.NotFound("adjustment", a.ID))
}

// Delete removes the owner's adjustment. An empty ownerID deletes a
// system-wide one.
func (s *AdjustmentDB) Delete(ctx context.Context, ownerID, id string) error {
	res, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM adjustments WHERE id = ? AND owner_id IS ?`, id, ownerArg(ownerID),
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting adjustment %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("adjustment", id))
}
