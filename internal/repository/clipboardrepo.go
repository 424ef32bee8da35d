// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/akulinich/clipshare/internal/model"
)

// ClipboardRepository provides CRUD access to clipboards. The core never
// talks to a concrete store directly; this interface is the whole contract.
type ClipboardRepository interface {
	// Create inserts a new clipboard. Name collisions among active
	// clipboards yield errs.ErrAlreadyExists.
	Create(ctx context.Context, c *model.Clipboard) error
	// GetByID loads a clipboard regardless of its active flag.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Clipboard, error)
	// GetByName loads an active clipboard by its unique name.
	GetByName(ctx context.Context, name string) (*model.Clipboard, error)
	// Update persists name/description/pin/requirePinOnVisit changes.
	Update(ctx context.Context, c *model.Clipboard) error
	// SetActive flips the soft-delete flag (deactivate and restore).
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// List returns the owner's clipboards, newest first.
	List(ctx context.Context, ownerID uuid.UUID) ([]model.Clipboard, error)
	// Delete removes the clipboard record. Item rows go with it; stored
	// files are the service's responsibility.
	Delete(ctx context.Context, id uuid.UUID) error
}
