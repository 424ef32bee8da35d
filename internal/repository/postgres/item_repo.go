package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/akulinich/clipshare/internal/errs"
	"github.com/akulinich/clipshare/internal/model"
)

// ItemRepo implements ItemRepository using PostgreSQL.
type ItemRepo struct{ db *DB }

// NewItemRepo constructs an item repository.
func NewItemRepo(db *DB) *ItemRepo { return &ItemRepo{db: db} }

const itemCols = `id, clipboard_id, type, content, iv, created_at, updated_at`

// Put inserts or updates an item. Last writer wins: concurrent edits to the
// same item race and either write may survive.
func (r *ItemRepo) Put(ctx context.Context, it *model.ClipboardItem) error {
	const q = `
INSERT INTO clipboard_items (id, clipboard_id, type, content, iv)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id)
DO UPDATE SET type=EXCLUDED.type, content=EXCLUDED.content, iv=EXCLUDED.iv, updated_at=now()`
	_, err := r.db.Pool.Exec(ctx, q, it.ID, it.ClipboardID, string(it.Type), it.Content, it.IV)
	return err
}

// Get returns a single item by id.
func (r *ItemRepo) Get(ctx context.Context, id uuid.UUID) (*model.ClipboardItem, error) {
	const q = `SELECT ` + itemCols + ` FROM clipboard_items WHERE id=$1`
	row := r.db.Pool.QueryRow(ctx, q, id)
	var it model.ClipboardItem
	var typ string
	if err := row.Scan(&it.ID, &it.ClipboardID, &typ, &it.Content, &it.IV, &it.CreatedAt, &it.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	it.Type = model.ItemType(typ)
	return &it, nil
}

// ListByClipboard returns a clipboard's items, oldest first.
func (r *ItemRepo) ListByClipboard(ctx context.Context, clipboardID uuid.UUID) ([]model.ClipboardItem, error) {
	const q = `SELECT ` + itemCols + ` FROM clipboard_items WHERE clipboard_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, clipboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ClipboardItem
	for rows.Next() {
		var it model.ClipboardItem
		var typ string
		if err := rows.Scan(&it.ID, &it.ClipboardID, &typ, &it.Content, &it.IV, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		it.Type = model.ItemType(typ)
		out = append(out, it)
	}
	return out, rows.Err()
}

// Delete removes an item row.
func (r *ItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM clipboard_items WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
