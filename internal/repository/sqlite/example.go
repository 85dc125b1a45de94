package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/repository"
)

var _ repository.ExampleRepository = (*ExampleDB)(nil)

// ExampleDB stores curated reference descriptions.
type ExampleDB struct {
	db *DB
}

const exampleColumns = `id, title, content, category, subcategory, tags, owner_id, visibility, created_at, updated_at`

// encodeTags always writes a JSON array, never NULL.
func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}

// decodeTags reads the tags column without ever failing.
//
// Rows written by this package hold a JSON array. Older imports may hold a
// comma-separated list or a single bare word; those are split on commas, and
// anything else becomes one tag.
func decodeTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	var tags []string
	if strings.HasPrefix(raw, "[") && json.Unmarshal([]byte(raw), &tags) == nil {
		return cleanTags(tags)
	}
	return cleanTags(strings.Split(raw, ","))
}

func cleanTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func scanExample(s scanner) (*model.Example, error) {
	var (
		e    model.Example
		tags string
	)
	if err := s.Scan(&e.ID, &e.Title, &e.Content, &e.Category, &e.Subcategory, &tags,
		&e.OwnerID, &e.Visibility, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Tags = decodeTags(tags)
	return &e, nil
}

func collectExamples(rows *sql.Rows, capHint int) ([]model.Example, error) {
	defer rows.Close()

	out := make([]model.Example, 0, capHint)
	for rows.Next() {
		e, err := scanExample(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning example row: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating examples: %w", err)
	}
	return out, nil
}

// Create inserts ex, filling in its ID and timestamps.
func (s *ExampleDB) Create(ctx context.Context, ex *model.Example) error {
	return insertExample(ctx, s.db.conn, ex)
}

// execer is the part of *sql.DB and *sql.Tx that inserts need.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertExample(ctx context.Context, x execer, ex *model.Example) error {
	tags, err := encodeTags(ex.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: creating example: %w", err)
	}

	now := time.Now().UTC()
	ex.ID = xid.New().String()
	ex.CreatedAt = now
	ex.UpdatedAt = now
	if ex.Visibility == "" {
		ex.Visibility = model.VisibilityPrivate
	}

	_, err = x.ExecContext(ctx,
		`INSERT INTO examples (`+exampleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.Title, ex.Content, ex.Category, ex.Subcategory, tags,
		ex.OwnerID, ex.Visibility, ex.CreatedAt, ex.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating example: %w", err)
	}
	return nil
}

// Get returns one of the owner's examples.
func (s *ExampleDB) Get(ctx context.Context, ownerID, id string) (*model.Example, error) {
	e, err := scanExample(s.db.conn.QueryRowContext(ctx,
		`SELECT `+exampleColumns+` FROM examples WHERE id = ? AND owner_id = ?`, id, ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("example", id)
		}
		return nil, fmt.Errorf("sqlite: getting example %s: %w", id, err)
	}
	return e, nil
}

// List returns the owner's examples, newest first, optionally narrowed to
// one category.
func (s *ExampleDB) List(ctx context.Context, ownerID string, f repository.ExampleFilter) ([]model.Example, error) {
	limit := clampLimit(f.Limit)
	offset := max(f.Offset, 0)

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+exampleColumns+` FROM examples
		 WHERE owner_id = ? AND (? = '' OR category = ?)
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		ownerID, f.Category, f.Category, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing examples: %w", err)
	}
	return collectExamples(rows, limit)
}

// ListPublic returns public examples from every owner, newest first. A zero
// category lists both.
func (s *ExampleDB) ListPublic(ctx context.Context, category model.Category, limit int) ([]model.Example, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+exampleColumns+` FROM examples
		 WHERE visibility = ? AND (? = '' OR category = ?)
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		model.VisibilityPublic, category, category, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing public examples: %w", err)
	}
	return collectExamples(rows, limit)
}

// Update saves every mutable field of ex. Only the owner's rows match.
func (s *ExampleDB) Update(ctx context.Context, ex *model.Example) error {
	tags, err := encodeTags(ex.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: updating example %s: %w", ex.ID, err)
	}
	ex.UpdatedAt = time.Now().UTC()

	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE examples
		 SET title = ?, content = ?, category = ?, subcategory = ?, tags = ?, visibility = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		ex.Title, ex.Content, ex.Category, ex.Subcategory, tags, ex.Visibility, ex.UpdatedAt,
		ex.ID, ex.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating example %s: %w", ex.ID, err)
	}
	return checkAffected(res, apperror.NotFound("example", ex.ID))
}

// Delete removes one of the owner's examples.
func (s *ExampleDB) Delete(ctx context.Context, ownerID, id string) error {
	res, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM examples WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting example %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("example", id))
}

// CreateFromGeneration marks the generation as saved and inserts ex in one
// transaction. The generation must belong to ex.OwnerID.
func (s *ExampleDB) CreateFromGeneration(ctx context.Context, ex *model.Example, generationID string) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE generations SET was_saved = 1 WHERE id = ? AND owner_id = ?`,
			generationID, ex.OwnerID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: marking generation %s saved: %w", generationID, err)
		}
		if err := checkAffected(res, apperror.NotFound("generation", generationID)); err != nil {
			return err
		}
		return insertExample(ctx, tx, ex)
	})
}
