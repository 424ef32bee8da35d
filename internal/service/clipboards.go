package service

import (
	"context"
	"fmt"
	"regexp"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/akulinich/clipshare/internal/crypto"
	"github.com/akulinich/clipshare/internal/errs"
	"github.com/akulinich/clipshare/internal/model"
	"github.com/akulinich/clipshare/internal/repository"
)

// nameRe constrains clipboard names: no whitespace, shell- and URL-safe.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ClipboardUpdate carries the mutable clipboard fields; nil means unchanged.
type ClipboardUpdate struct {
	Name              *string
	Description       *string
	Pin               *string // plaintext, re-hashed before storage
	RequirePinOnVisit *bool
}

// ClipboardService manages clipboard lifecycle: create, update, soft
// delete/restore, and explicit purge. Soft deletion never touches items;
// purge is the one operation that removes items and their stored files.
type ClipboardService struct {
	clipboards repository.ClipboardRepository
	items      *ItemService
	log        *zap.Logger
}

// NewClipboardService constructs ClipboardService.
func NewClipboardService(clipboards repository.ClipboardRepository, items *ItemService, log *zap.Logger) *ClipboardService {
	return &ClipboardService{clipboards: clipboards, items: items, log: log}
}

// Create registers a new clipboard with a hashed PIN.
func (s *ClipboardService) Create(ctx context.Context, ownerID uuid.UUID, name, description, pin string, requirePinOnVisit bool) (*model.Clipboard, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("empty owner: %w", errs.ErrInvalidInput)
	}
	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("name %q must match [A-Za-z0-9_-]+: %w", name, errs.ErrInvalidInput)
	}
	pinHash, err := crypto.HashSecret(pin)
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	cb := &model.Clipboard{
		ID:                id,
		Name:              name,
		Description:       description,
		PinHash:           pinHash,
		IsActive:          true,
		RequirePinOnVisit: requirePinOnVisit,
		CreatedBy:         ownerID,
	}
	if err := s.clipboards.Create(ctx, cb); err != nil {
		return nil, err
	}
	return cb, nil
}

// Get loads a clipboard by id.
func (s *ClipboardService) Get(ctx context.Context, id uuid.UUID) (*model.Clipboard, error) {
	return s.clipboards.GetByID(ctx, id)
}

// GetByName resolves an active clipboard by its unique name.
func (s *ClipboardService) GetByName(ctx context.Context, name string) (*model.Clipboard, error) {
	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("name %q: %w", name, errs.ErrInvalidInput)
	}
	return s.clipboards.GetByName(ctx, name)
}

// Update applies the provided field changes. A new PIN is hashed here; the
// plaintext never reaches the repository.
func (s *ClipboardService) Update(ctx context.Context, id uuid.UUID, upd ClipboardUpdate) (*model.Clipboard, error) {
	cb, err := s.clipboards.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if !nameRe.MatchString(*upd.Name) {
			return nil, fmt.Errorf("name %q must match [A-Za-z0-9_-]+: %w", *upd.Name, errs.ErrInvalidInput)
		}
		cb.Name = *upd.Name
	}
	if upd.Description != nil {
		cb.Description = *upd.Description
	}
	if upd.Pin != nil {
		hash, err := crypto.HashSecret(*upd.Pin)
		if err != nil {
			return nil, err
		}
		cb.PinHash = hash
	}
	if upd.RequirePinOnVisit != nil {
		cb.RequirePinOnVisit = *upd.RequirePinOnVisit
	}

	if err := s.clipboards.Update(ctx, cb); err != nil {
		return nil, err
	}
	return cb, nil
}

// Deactivate soft-deletes a clipboard. Items stay in place for Restore.
func (s *ClipboardService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.clipboards.SetActive(ctx, id, false)
}

// Restore re-enables a soft-deleted clipboard.
func (s *ClipboardService) Restore(ctx context.Context, id uuid.UUID) error {
	return s.clipboards.SetActive(ctx, id, true)
}

// Purge hard-deletes a clipboard: every item's stored file is removed
// best-effort, then the record goes (item rows cascade with it). This is
// the explicit counterpart to Deactivate; cascading never happens
// implicitly.
func (s *ClipboardService) Purge(ctx context.Context, id uuid.UUID) error {
	rows, err := s.items.items.ListByClipboard(ctx, id)
	if err != nil {
		return err
	}
	for i := range rows {
		if rows[i].Type.FileBacked() {
			s.items.deleteBackingFile(ctx, &rows[i])
		}
	}
	if err := s.clipboards.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("clipboard purged",
		zap.String("clipboard_id", id.String()),
		zap.Int("items", len(rows)),
	)
	return nil
}

// List returns the owner's clipboards.
func (s *ClipboardService) List(ctx context.Context, ownerID uuid.UUID) ([]model.Clipboard, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("empty owner: %w", errs.ErrInvalidInput)
	}
	return s.clipboards.List(ctx, ownerID)
}
