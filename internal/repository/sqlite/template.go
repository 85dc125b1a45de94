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

var _ repository.TemplateRepository = (*TemplateDB)(nil)

// TemplateDB stores prompt templates.
//
// ACTIVATION IS ONE TRANSACTION:
// Making a template active touches several rows: every sibling with the same
// (owner, category) goes inactive, then the target goes active. If those ran
// as separate statements, a crash in between would leave zero active
// templates, and two concurrent activations could briefly leave two. Inside
// a transaction the reader only ever sees the before or the after state.
//
// The partial unique index idx_prompt_templates_one_active is the second line:
// if any code path ever tried to commit two active rows, the commit fails.
type TemplateDB struct {
	db *DB
}

const templateColumns = `id, category, title, content, owner_id, active, version, created_at, updated_at`

// querier is the read side shared by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanTemplate(s scanner) (*model.PromptTemplate, error) {
	var t model.PromptTemplate
	if err := s.Scan(&t.ID, &t.Category, &t.Title, &t.Content, &t.OwnerID, &t.Active,
		&t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func getTemplate(ctx context.Context, q querier, ownerID, id string) (*model.PromptTemplate, error) {
	t, err := scanTemplate(q.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM prompt_templates WHERE id = ? AND owner_id = ?`, id, ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("template", id)
		}
		return nil, fmt.Errorf("sqlite: getting template %s: %w", id, err)
	}
	return t, nil
}

// deactivateSiblings clears the active flag of every other template of
// (owner, category). Their versions stay as they are.
func deactivateSiblings(ctx context.Context, tx *sql.Tx, ownerID string, category model.Category, keepID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE prompt_templates SET active = 0
		 WHERE owner_id = ? AND category = ? AND id <> ? AND active = 1`,
		ownerID, category, keepID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deactivating %s templates: %w", category, err)
	}
	return nil
}

func wrapTemplateWrite(err error, t *model.PromptTemplate, op string) error {
	if isUniqueViolation(err) {
		return apperror.Conflict("active template", string(t.Category))
	}
	return fmt.Errorf("sqlite: %s template %s: %w", op, t.ID, err)
}

// Create inserts t at version 1. An active t takes over from any active
// sibling in the same transaction.
func (s *TemplateDB) Create(ctx context.Context, t *model.PromptTemplate) error {
	now := time.Now().UTC()
	t.ID = xid.New().String()
	t.Version = 1
	t.CreatedAt = now
	t.UpdatedAt = now

	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if t.Active {
			if err := deactivateSiblings(ctx, tx, t.OwnerID, t.Category, t.ID); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO prompt_templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Category, t.Title, t.Content, t.OwnerID, t.Active, t.Version, t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			return wrapTemplateWrite(err, t, "creating")
		}
		return nil
	})
}

func (s *TemplateDB) Get(ctx context.Context, ownerID, id string) (*model.PromptTemplate, error) {
	return getTemplate(ctx, s.db.conn, ownerID, id)
}

// List returns the owner's templates grouped by category, active first.
func (s *TemplateDB) List(ctx context.Context, ownerID string) ([]model.PromptTemplate, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM prompt_templates
		 WHERE owner_id = ?
		 ORDER BY category, active DESC, updated_at DESC, rowid DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing templates: %w", err)
	}
	defer rows.Close()

	var out []model.PromptTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning template row: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating templates: %w", err)
	}
	return out, nil
}

func (s *TemplateDB) GetActive(ctx context.Context, ownerID string, category model.Category) (*model.PromptTemplate, error) {
	t, err := scanTemplate(s.db.conn.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM prompt_templates
		 WHERE owner_id = ? AND category = ? AND active = 1`,
		ownerID, category,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("active template", string(category))
		}
		return nil, fmt.Errorf("sqlite: getting active %s template: %w", category, err)
	}
	return t, nil
}

// Update saves title, content and the active flag, and bumps the version.
// The category of a template never changes. On success t holds the stored
// row.
func (s *TemplateDB) Update(ctx context.Context, t *model.PromptTemplate) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getTemplate(ctx, tx, t.OwnerID, t.ID)
		if err != nil {
			return err
		}

		if t.Active {
			if err := deactivateSiblings(ctx, tx, cur.OwnerID, cur.Category, cur.ID); err != nil {
				return err
			}
		}

		cur.Title = t.Title
		cur.Content = t.Content
		cur.Active = t.Active
		cur.Version++
		cur.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx,
			`UPDATE prompt_templates
			 SET title = ?, content = ?, active = ?, version = ?, updated_at = ?
			 WHERE id = ? AND owner_id = ?`,
			cur.Title, cur.Content, cur.Active, cur.Version, cur.UpdatedAt, cur.ID, cur.OwnerID,
		)
		if err != nil {
			return wrapTemplateWrite(err, cur, "updating")
		}

		*t = *cur
		return nil
	})
}

// Activate makes id the only active template of its (owner, category) and
// bumps its version. Activating the already-active template still counts as
// an update.
func (s *TemplateDB) Activate(ctx context.Context, ownerID, id string) (*model.PromptTemplate, error) {
	var out *model.PromptTemplate

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		t, err := getTemplate(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}

		if err := deactivateSiblings(ctx, tx, t.OwnerID, t.Category, t.ID); err != nil {
			return err
		}

		t.Active = true
		t.Version++
		t.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx,
			`UPDATE prompt_templates SET active = 1, version = ?, updated_at = ?
			 WHERE id = ? AND owner_id = ?`,
			t.Version, t.UpdatedAt, t.ID, t.OwnerID,
		)
		if err != nil {
			return wrapTemplateWrite(err, t, "activating")
		}

		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TemplateDB) Delete(ctx context.Context, ownerID, id string) error {
	res, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM prompt_templates WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting template %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("template", id))
}
