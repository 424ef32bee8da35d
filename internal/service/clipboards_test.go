package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/akulinich/clipshare/internal/crypto"
	"github.com/akulinich/clipshare/internal/errs"
	"github.com/akulinich/clipshare/internal/filestore"
	"github.com/akulinich/clipshare/internal/model"
)

func newClipboardFixture(t *testing.T) (*ClipboardService, *itemsFixture) {
	t.Helper()
	f := newItemsFixture(t, 0)
	return NewClipboardService(f.clipboards, f.svc, zap.NewNop()), f
}

func TestClipboardService_Create(t *testing.T) {
	t.Parallel()
	svc, _ := newClipboardFixture(t)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())

	cb, err := svc.Create(ctx, owner, "team-notes", "shared scratchpad", "4242", true)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if cb.PinHash == "4242" || !strings.HasPrefix(cb.PinHash, "$argon2id$") {
		t.Fatalf("pin stored without hashing: %q", cb.PinHash)
	}
	if !cb.IsActive {
		t.Fatalf("new clipboard not active")
	}

	ok, err := crypto.VerifySecret("4242", cb.PinHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}

	// Name collision among active clipboards.
	if _, err := svc.Create(ctx, owner, "team-notes", "", "1111", false); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("duplicate name: want ErrAlreadyExists, got %v", err)
	}

	got, err := svc.GetByName(ctx, "team-notes")
	if err != nil || got.ID != cb.ID {
		t.Fatalf("GetByName: got=%+v err=%v", got, err)
	}
}

func TestClipboardService_Create_NameValidation(t *testing.T) {
	t.Parallel()
	svc, _ := newClipboardFixture(t)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())

	for _, name := range []string{"", "has space", "slash/name", "ünïcode", "dot.dot", "new\nline"} {
		if _, err := svc.Create(ctx, owner, name, "", "4242", false); !errors.Is(err, errs.ErrInvalidInput) {
			t.Fatalf("name %q: want ErrInvalidInput, got %v", name, err)
		}
	}
	for _, name := range []string{"ok", "Team_Notes-2", "a"} {
		if _, err := svc.Create(ctx, owner, name, "", "4242", false); err != nil {
			t.Fatalf("name %q: %v", name, err)
		}
	}
}

func TestClipboardService_Create_EmptyPin(t *testing.T) {
	t.Parallel()
	svc, _ := newClipboardFixture(t)

	_, err := svc.Create(context.Background(), uuid.Must(uuid.NewV4()), "notes", "", "", false)
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("empty pin: want ErrInvalidInput, got %v", err)
	}
}

func TestClipboardService_Update_RehashesPin(t *testing.T) {
	t.Parallel()
	svc, _ := newClipboardFixture(t)
	ctx := context.Background()

	cb, err := svc.Create(ctx, uuid.Must(uuid.NewV4()), "notes", "", "4242", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	newPin := "9999"
	upd, err := svc.Update(ctx, cb.ID, ClipboardUpdate{Pin: &newPin})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.PinHash == cb.PinHash {
		t.Fatalf("pin hash unchanged after pin update")
	}
	if ok, _ := crypto.VerifySecret("9999", upd.PinHash); !ok {
		t.Fatalf("new pin does not verify")
	}
	if ok, _ := crypto.VerifySecret("4242", upd.PinHash); ok {
		t.Fatalf("old pin still verifies")
	}
}

func TestClipboardService_SoftDeleteAndRestore(t *testing.T) {
	t.Parallel()
	svc, f := newClipboardFixture(t)
	ctx := context.Background()

	cb, err := svc.Create(ctx, uuid.Must(uuid.NewV4()), "notes", "", "4242", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	it, err := f.svc.Create(ctx, cb.ID, model.TypeText, "survives soft delete")
	if err != nil {
		t.Fatalf("item Create: %v", err)
	}

	if err := svc.Deactivate(ctx, cb.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	// Inactive clipboards resolve by id but not by name, and deny access.
	if _, err := svc.GetByName(ctx, "notes"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("inactive clipboard still resolves by name: %v", err)
	}
	if _, err := f.svc.Read(ctx, cb.ID, it.ID, Access{Pin: "4242"}); !errors.Is(err, errs.ErrAccessDenied) {
		t.Fatalf("inactive clipboard still serves items: %v", err)
	}

	// Items are not cascade-deleted by deactivation.
	if _, err := f.items.Get(ctx, it.ID); err != nil {
		t.Fatalf("item gone after soft delete: %v", err)
	}

	if err := svc.Restore(ctx, cb.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, err := f.svc.Read(ctx, cb.ID, it.ID, Access{Pin: "4242"})
	if err != nil || got.Content != "survives soft delete" {
		t.Fatalf("restored clipboard unreadable: got=%+v err=%v", got, err)
	}
}

func TestClipboardService_Purge_RemovesItemsAndFiles(t *testing.T) {
	t.Parallel()
	svc, f := newClipboardFixture(t)
	ctx := context.Background()

	cb, err := svc.Create(ctx, uuid.Must(uuid.NewV4()), "notes", "", "4242", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	img, err := f.svc.CreateFile(ctx, cb.ID, model.TypeImage, filestore.Upload{
		Name: "pic.png", Data: strings.NewReader("pixels"),
	})
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	pt, err := f.svc.Read(ctx, cb.ID, img.ID, Access{Pin: "4242"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	ref := pt.File.FilePath

	if err := svc.Purge(ctx, cb.ID); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, err := svc.Get(ctx, cb.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("clipboard record survived purge: %v", err)
	}
	if _, _, err := f.files.Read(ctx, ref); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("stored file survived purge: %v", err)
	}
}
