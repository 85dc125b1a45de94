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

var (
	_ repository.GenerationRepository = (*GenerationDB)(nil)
	_ repository.StatsRepository      = (*DB)(nil)
)

// GenerationDB stores generation records. Records are never edited here;
// was_saved is only set by ExampleDB.CreateFromGeneration.
type GenerationDB struct {
	db *DB
}

const generationColumns = `id, input_text, generated_text, category, owner_id, tokens_used, model_version, processing_time, was_saved, created_at`

func scanGeneration(s scanner) (*model.GenerationRecord, error) {
	var (
		g      model.GenerationRecord
		tokens sql.NullInt64
	)
	if err := s.Scan(&g.ID, &g.InputText, &g.GeneratedText, &g.Category, &g.OwnerID, &tokens,
		&g.ModelVersion, &g.ProcessingTime, &g.WasSaved, &g.CreatedAt); err != nil {
		return nil, err
	}
	if tokens.Valid {
		n := int(tokens.Int64)
		g.TokensUsed = &n
	}
	return &g, nil
}

func (s *GenerationDB) Create(ctx context.Context, g *model.GenerationRecord) error {
	g.ID = xid.New().String()
	g.CreatedAt = time.Now().UTC()
	g.WasSaved = false

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO generations (`+generationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.InputText, g.GeneratedText, g.Category, g.OwnerID, g.TokensUsed,
		g.ModelVersion, g.ProcessingTime, g.WasSaved, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating generation: %w", err)
	}
	return nil
}

func (s *GenerationDB) Get(ctx context.Context, ownerID, id string) (*model.GenerationRecord, error) {
	g, err := scanGeneration(s.db.conn.QueryRowContext(ctx,
		`SELECT `+generationColumns+` FROM generations WHERE id = ? AND owner_id = ?`, id, ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("generation", id)
		}
		return nil, fmt.Errorf("sqlite: getting generation %s: %w", id, err)
	}
	return g, nil
}

func (s *GenerationDB) List(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.GenerationRecord, error) {
	limit := clampLimit(opts.Limit)

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+generationColumns+` FROM generations
		 WHERE owner_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		ownerID, limit, max(opts.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing generations: %w", err)
	}
	defer rows.Close()

	out := make([]model.GenerationRecord, 0, limit)
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning generation row: %w", err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating generations: %w", err)
	}
	return out, nil
}

// Stats counts the owner's corrections, examples and generations, plus the
// corrections and generations created at or after since.
func (db *DB) Stats(ctx context.Context, ownerID string, since time.Time) (*model.LearningStats, error) {
	var st model.LearningStats
	err := db.conn.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM corrections WHERE owner_id = ?1),
			(SELECT COUNT(*) FROM examples    WHERE owner_id = ?1),
			(SELECT COUNT(*) FROM generations WHERE owner_id = ?1),
			(SELECT COUNT(*) FROM corrections WHERE owner_id = ?1 AND created_at >= ?2),
			(SELECT COUNT(*) FROM generations WHERE owner_id = ?1 AND created_at >= ?2)`,
		ownerID, since.UTC(),
	).Scan(&st.TotalCorrections, &st.TotalExamples, &st.TotalGenerations, &st.RecentCorrections, &st.RecentGenerations)
	if err != nil {
		return nil, fmt.Errorf("sqlite: computing stats for %s: %w", ownerID, err)
	}
	return &st, nil
}
