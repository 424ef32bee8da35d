package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/akulinich/clipshare/internal/model"
)

// ItemRepository provides access to encrypted clipboard items. Rows always
// hold ciphertext plus the IV it was produced with; plaintext never reaches
// this layer.
type ItemRepository interface {
	// Put creates or updates an item (last writer wins).
	Put(ctx context.Context, it *model.ClipboardItem) error
	// Get returns a single item by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.ClipboardItem, error)
	// ListByClipboard returns a clipboard's items, oldest first.
	ListByClipboard(ctx context.Context, clipboardID uuid.UUID) ([]model.ClipboardItem, error)
	// Delete removes an item row. Missing rows yield errs.ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error
}
