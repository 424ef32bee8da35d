package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/akulinich/clipshare/internal/crypto"
	"github.com/akulinich/clipshare/internal/errs"
	"github.com/akulinich/clipshare/internal/filestore"
	"github.com/akulinich/clipshare/internal/model"
	"github.com/akulinich/clipshare/internal/repository"
	"github.com/akulinich/clipshare/internal/service"
)

const testKeyHex = "6368616e676520746869732070617373776f726420746f206120736563726574"

var testSignKey = []byte("handler-test-sign-key")

// In-memory repositories honouring the same sentinel contract as postgres.

type memClipboards struct {
	m map[uuid.UUID]*model.Clipboard
}

var _ repository.ClipboardRepository = (*memClipboards)(nil)

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
	ex.Name, ex.Description = c.Name, c.Description
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
	order []uuid.UUID
}

var _ repository.ItemRepository = (*memItems)(nil)

func (r *memItems) Put(_ context.Context, it *model.ClipboardItem) error {
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

type memUsers struct{ m map[uuid.UUID]*model.User }

var _ repository.UserRepository = (*memUsers)(nil)

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

// fixture stands up the full handler stack over in-memory repositories and
// a temp-dir file store.
type fixture struct {
	srv        *Server
	dir        string
	clipboards *memClipboards
	items      *memItems
	users      *memUsers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()

	cipher, err := crypto.NewPayloadCipher(testKeyHex)
	if err != nil {
		t.Fatalf("NewPayloadCipher: %v", err)
	}
	dir := t.TempDir()
	files, err := filestore.New(dir, 1<<20, log)
	if err != nil {
		t.Fatalf("filestore.New: %v", err)
	}

	clipboards := &memClipboards{m: make(map[uuid.UUID]*model.Clipboard)}
	items := &memItems{m: make(map[uuid.UUID]model.ClipboardItem)}
	users := &memUsers{m: make(map[uuid.UUID]*model.User)}

	gate := service.NewAccessGate(clipboards, testSignKey, 0, log)
	itemSvc := service.NewItemService(clipboards, items, cipher, files, gate, log)
	cbSvc := service.NewClipboardService(clipboards, itemSvc, log)
	auth := service.NewAuthService(users, testSignKey, 0)

	return &fixture{
		srv:        New(auth, cbSvc, itemSvc, gate, 1<<20, log),
		dir:        dir,
		clipboards: clipboards,
		items:      items,
		users:      users,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil && hdr["Content-Type"] == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	f.srv.ServeHTTP(rr, req)
	return rr
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(b)
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

// signupAndLogin registers an owner and returns their Bearer header value.
func (f *fixture) signupAndLogin(t *testing.T, username string) string {
	t.Helper()
	creds := credentialsRequest{Username: username, Password: "s3cret-pass"}
	rr := f.do(t, http.MethodPost, "/api/auth/signup", jsonBody(t, creds), nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: status %d body %s", rr.Code, rr.Body.String())
	}
	rr = f.do(t, http.MethodPost, "/api/auth/login", jsonBody(t, creds), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody[loginResponse](t, rr)
	return "Bearer " + resp.AccessToken
}

// createClipboard provisions a clipboard through the API and returns its id.
func (f *fixture) createClipboard(t *testing.T, bearer, name, pin string, requirePin bool) string {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/api/clipboards", jsonBody(t, createClipboardRequest{
		Name:              name,
		Pin:               pin,
		RequirePinOnVisit: requirePin,
	}), map[string]string{"Authorization": bearer})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create clipboard: status %d body %s", rr.Code, rr.Body.String())
	}
	return decodeBody[clipboardResponse](t, rr).ID
}
