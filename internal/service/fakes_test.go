package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/akulinich/clipshare/internal/errs"
	"github.com/akulinich/clipshare/internal/model"
	"github.com/akulinich/clipshare/internal/repository"
)

// In-memory repositories backing the service tests. They honour the same
// sentinel-error contract as the postgres implementations.

type memClipboards struct {
	m map[uuid.UUID]*model.Clipboard
}

var _ repository.ClipboardRepository = (*memClipboards)(nil)

func newMemClipboards() *memClipboards {
	return &memClipboards{m: make(map[uuid.UUID]*model.Clipboard)}
}

func (r *memClipboards) Create(_ context.Context, c *model.Clipboard) error {
	for _, ex := range r.m {
		if ex.IsActive && ex.Name == c.Name {
			return errs.ErrAlreadyExists
		}
	}
	cp := *c
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.m[c.ID] = &cp
	return nil
}

func (r *memClipboards) GetByID(_ context.Context, id uuid.UUID) (*model.Clipboard, error) {
	c, ok := r.m[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memClipboards) GetByName(_ context.Context, name string) (*model.Clipboard, error) {
	for _, c := range r.m {
		if c.IsActive && c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *memClipboards) Update(_ context.Context, c *model.Clipboard) error {
	ex, ok := r.m[c.ID]
	if !ok {
		return errs.ErrNotFound
	}
	ex.Name = c.Name
	ex.Description = c.Description
	ex.PinHash = c.PinHash
	ex.RequirePinOnVisit = c.RequirePinOnVisit
	ex.UpdatedAt = time.Now()
	return nil
}

func (r *memClipboards) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	c, ok := r.m[id]
	if !ok {
		return errs.ErrNotFound
	}
	c.IsActive = active
	return nil
}

func (r *memClipboards) List(_ context.Context, ownerID uuid.UUID) ([]model.Clipboard, error) {
	var out []model.Clipboard
	for _, c := range r.m {
		if c.CreatedBy == ownerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memClipboards) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.m[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.m, id)
	return nil
}

type memItems struct {
	m     map[uuid.UUID]model.ClipboardItem
	order []uuid.UUID // insertion order stands in for created_at ASC
	// putErr, when set, fails the next Put. Used to exercise rollback paths.
	putErr error
}

var _ repository.ItemRepository = (*memItems)(nil)

func newMemItems() *memItems {
	return &memItems{m: make(map[uuid.UUID]model.ClipboardItem)}
}

func (r *memItems) Put(_ context.Context, it *model.ClipboardItem) error {
	if r.putErr != nil {
		err := r.putErr
		r.putErr = nil
		return err
	}
	if _, exists := r.m[it.ID]; !exists {
		r.order = append(r.order, it.ID)
		it.CreatedAt = time.Now()
	}
	it.UpdatedAt = time.Now()
	r.m[it.ID] = *it
	return nil
}

func (r *memItems) Get(_ context.Context, id uuid.UUID) (*model.ClipboardItem, error) {
	it, ok := r.m[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &it, nil
}

func (r *memItems) ListByClipboard(_ context.Context, clipboardID uuid.UUID) ([]model.ClipboardItem, error) {
	var out []model.ClipboardItem
	for _, id := range r.order {
		if it, ok := r.m[id]; ok && it.ClipboardID == clipboardID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memItems) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.m[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.m, id)
	return nil
}

type memUsers struct {
	m map[uuid.UUID]*model.User
}

var _ repository.UserRepository = (*memUsers)(nil)

func newMemUsers() *memUsers {
	return &memUsers{m: make(map[uuid.UUID]*model.User)}
}

func (r *memUsers) Create(_ context.Context, u *model.User) error {
	for _, ex := range r.m {
		if ex.Username == u.Username {
			return errs.ErrAlreadyExists
		}
	}
	cp := *u
	cp.CreatedAt = time.Now()
	r.m[u.ID] = &cp
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.m[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.m {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.ErrNotFound
}
