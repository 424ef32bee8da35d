package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/akulinich/clipshare/internal/errs"
	"github.com/akulinich/clipshare/internal/model"
)

// ClipboardRepo implements ClipboardRepository using PostgreSQL.
type ClipboardRepo struct{ db *DB }

// NewClipboardRepo constructs a clipboard repository.
func NewClipboardRepo(db *DB) *ClipboardRepo { return &ClipboardRepo{db: db} }

const clipboardCols = `id, name, description, pin_hash, is_active, require_pin_on_visit, created_by, created_at, updated_at`

// Create inserts a new clipboard row.
func (r *ClipboardRepo) Create(ctx context.Context, c *model.Clipboard) error {
	const q = `
INSERT INTO clipboards (id, name, description, pin_hash, is_active, require_pin_on_visit, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Pool.Exec(ctx, q, c.ID, c.Name, c.Description, c.PinHash, c.IsActive, c.RequirePinOnVisit, c.CreatedBy)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a clipboard by ID, active or not.
func (r *ClipboardRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Clipboard, error) {
	const q = `SELECT ` + clipboardCols + ` FROM clipboards WHERE id=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByName selects an active clipboard by its unique name.
func (r *ClipboardRepo) GetByName(ctx context.Context, name string) (*model.Clipboard, error) {
	const q = `SELECT ` + clipboardCols + ` FROM clipboards WHERE name=$1 AND is_active`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, name))
}

// Update persists mutable clipboard fields and bumps updated_at.
func (r *ClipboardRepo) Update(ctx context.Context, c *model.Clipboard) error {
	const q = `
UPDATE clipboards
SET name=$2, description=$3, pin_hash=$4, require_pin_on_visit=$5, updated_at=now()
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, c.ID, c.Name, c.Description, c.PinHash, c.RequirePinOnVisit)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetActive flips the soft-delete flag.
func (r *ClipboardRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	const q = `UPDATE clipboards SET is_active=$2, updated_at=now() WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// List returns the owner's clipboards, newest first.
func (r *ClipboardRepo) List(ctx context.Context, ownerID uuid.UUID) ([]model.Clipboard, error) {
	const q = `SELECT ` + clipboardCols + ` FROM clipboards WHERE created_by=$1 ORDER BY updated_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Clipboard
	for rows.Next() {
		var c model.Clipboard
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.PinHash, &c.IsActive,
			&c.RequirePinOnVisit, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes the clipboard row; item rows cascade at the schema level.
func (r *ClipboardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM clipboards WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *ClipboardRepo) scanOne(row pgx.Row) (*model.Clipboard, error) {
	var c model.Clipboard
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.PinHash, &c.IsActive,
		&c.RequirePinOnVisit, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
