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

var _ repository.CorrectionRepository = (*CorrectionDB)(nil)

// CorrectionDB stores the correction log.
type CorrectionDB struct {
	db *DB
}

const correctionColumns = `id, original_text, corrected_text, category, kind, owner_id, generation_id, applied, notes, created_at`

func scanCorrection(s scanner) (*model.Correction, error) {
	var (
		c     model.Correction
		genID sql.NullString
	)
	if err := s.Scan(&c.ID, &c.OriginalText, &c.CorrectedText, &c.Category, &c.Kind,
		&c.OwnerID, &genID, &c.Applied, &c.Notes, &c.CreatedAt); err != nil {
		return nil, err
	}
	if genID.Valid {
		c.GenerationID = &genID.String
	}
	return &c, nil
}

func (s *CorrectionDB) list(ctx context.Context, query string, capHint int, args ...any) ([]model.Correction, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing corrections: %w", err)
	}
	defer rows.Close()

	out := make([]model.Correction, 0, capHint)
	for rows.Next() {
		c, err := scanCorrection(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning correction row: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating corrections: %w", err)
	}
	return out, nil
}

// Create inserts c. New corrections always start unapplied.
func (s *CorrectionDB) Create(ctx context.Context, c *model.Correction) error {
	c.ID = xid.New().String()
	c.CreatedAt = time.Now().UTC()
	c.Applied = false
	if c.Kind == "" {
		c.Kind = model.CorrectionGeneral
	}

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO corrections (`+correctionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OriginalText, c.CorrectedText, c.Category, c.Kind,
		c.OwnerID, c.GenerationID, c.Applied, c.Notes, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating correction: %w", err)
	}
	return nil
}

func (s *CorrectionDB) Get(ctx context.Context, ownerID, id string) (*model.Correction, error) {
	c, err := scanCorrection(s.db.conn.QueryRowContext(ctx,
		`SELECT `+correctionColumns+` FROM corrections WHERE id = ? AND owner_id = ?`, id, ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("correction", id)
		}
		return nil, fmt.Errorf("sqlite: getting correction %s: %w", id, err)
	}
	return c, nil
}

func (s *CorrectionDB) List(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.Correction, error) {
	limit := clampLimit(opts.Limit)
	return s.list(ctx,
		`SELECT `+correctionColumns+` FROM corrections
		 WHERE owner_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		limit, ownerID, limit, max(opts.Offset, 0),
	)
}

func (s *CorrectionDB) ListUnapplied(ctx context.Context, ownerID string, category model.Category, limit int) ([]model.Correction, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.list(ctx,
		`SELECT `+correctionColumns+` FROM corrections
		 WHERE owner_id = ? AND category = ? AND applied = 0
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		limit, ownerID, category, limit,
	)
}

// MarkApplied flips applied to true. Applying an already-applied correction
// is a no-op, not an error.
func (s *CorrectionDB) MarkApplied(ctx context.Context, ownerID, id string) error {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE corrections SET applied = 1 WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: applying correction %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("correction", id))
}
