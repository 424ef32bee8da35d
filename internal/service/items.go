package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/akulinich/clipshare/internal/crypto"
	"github.com/akulinich/clipshare/internal/errs"
	"github.com/akulinich/clipshare/internal/filestore"
	"github.com/akulinich/clipshare/internal/model"
	"github.com/akulinich/clipshare/internal/repository"
)

// maxTextLen bounds text/link payloads; larger content belongs in a file.
const maxTextLen = 64 << 10

// ItemService owns the write/read paths over encrypted clipboard items.
// Writes encrypt before the repository sees anything; reads pass the access
// gate before anything is decrypted.
type ItemService struct {
	clipboards repository.ClipboardRepository
	items      repository.ItemRepository
	cipher     *crypto.PayloadCipher
	files      *filestore.Store
	gate       *AccessGate
	log        *zap.Logger
}

// NewItemService constructs ItemService with its collaborators.
func NewItemService(
	clipboards repository.ClipboardRepository,
	items repository.ItemRepository,
	cipher *crypto.PayloadCipher,
	files *filestore.Store,
	gate *AccessGate,
	log *zap.Logger,
) *ItemService {
	return &ItemService{clipboards: clipboards, items: items, cipher: cipher, files: files, gate: gate, log: log}
}

// Create adds a text or link item to a clipboard.
func (s *ItemService) Create(ctx context.Context, clipboardID uuid.UUID, typ model.ItemType, plaintext string) (*model.ClipboardItem, error) {
	if typ != model.TypeText && typ != model.TypeLink {
		return nil, fmt.Errorf("type %q is not a text type: %w", typ, errs.ErrInvalidInput)
	}
	if plaintext == "" || len(plaintext) > maxTextLen {
		return nil, fmt.Errorf("content empty or over %d bytes: %w", maxTextLen, errs.ErrInvalidInput)
	}
	if _, err := s.clipboards.GetByID(ctx, clipboardID); err != nil {
		return nil, err
	}
	return s.encryptAndPut(ctx, clipboardID, uuid.Nil, typ, plaintext)
}

// CreateFile persists an upload and adds an image/file item whose encrypted
// content is the stored file's metadata. If the record write fails, the
// just-stored file is removed so no orphan survives the rollback.
func (s *ItemService) CreateFile(ctx context.Context, clipboardID uuid.UUID, typ model.ItemType, up filestore.Upload) (*model.ClipboardItem, error) {
	if !typ.FileBacked() {
		return nil, fmt.Errorf("type %q is not file backed: %w", typ, errs.ErrInvalidInput)
	}
	if _, err := s.clipboards.GetByID(ctx, clipboardID); err != nil {
		return nil, err
	}

	meta, err := s.files.Save(ctx, up)
	if err != nil {
		return nil, err
	}
	blob, err := json.Marshal(meta)
	if err != nil {
		s.removeFile(ctx, meta.FilePath)
		return nil, err
	}

	it, err := s.encryptAndPut(ctx, clipboardID, uuid.Nil, typ, string(blob))
	if err != nil {
		s.removeFile(ctx, meta.FilePath)
		return nil, err
	}
	return it, nil
}

// Read returns one decrypted item after the access gate admits the caller.
func (s *ItemService) Read(ctx context.Context, clipboardID, itemID uuid.UUID, access Access) (*model.PlaintextItem, error) {
	if err := s.gate.Check(ctx, clipboardID, access); err != nil {
		return nil, err
	}
	it, err := s.fetchOwned(ctx, clipboardID, itemID)
	if err != nil {
		return nil, err
	}
	return s.decryptItem(it)
}

// List returns all of a clipboard's items, decrypted, oldest first. The
// gate is consulted once for the whole listing. Items that fail to decrypt
// are skipped and logged rather than failing the page.
func (s *ItemService) List(ctx context.Context, clipboardID uuid.UUID, access Access) ([]model.PlaintextItem, error) {
	if err := s.gate.Check(ctx, clipboardID, access); err != nil {
		return nil, err
	}
	rows, err := s.items.ListByClipboard(ctx, clipboardID)
	if err != nil {
		return nil, err
	}

	out := make([]model.PlaintextItem, 0, len(rows))
	for i := range rows {
		pt, err := s.decryptItem(&rows[i])
		if err != nil {
			s.log.Warn("skipping undecryptable item",
				zap.String("item_id", rows[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		out = append(out, *pt)
	}
	return out, nil
}

// Update re-encrypts an item in place with a fresh IV. Only text and link
// targets are supported; file-backed items are replaced, not edited. When
// the previous version referenced a stored file, that file is deleted
// best-effort.
func (s *ItemService) Update(ctx context.Context, clipboardID, itemID uuid.UUID, typ model.ItemType, plaintext string) (*model.ClipboardItem, error) {
	if typ != model.TypeText && typ != model.TypeLink {
		return nil, fmt.Errorf("type %q is not a text type: %w", typ, errs.ErrInvalidInput)
	}
	if plaintext == "" || len(plaintext) > maxTextLen {
		return nil, fmt.Errorf("content empty or over %d bytes: %w", maxTextLen, errs.ErrInvalidInput)
	}

	old, err := s.fetchOwned(ctx, clipboardID, itemID)
	if err != nil {
		return nil, err
	}
	if old.Type.FileBacked() {
		s.deleteBackingFile(ctx, old)
	}
	return s.encryptAndPut(ctx, old.ClipboardID, old.ID, typ, plaintext)
}

// Delete removes an item. For image/file items the stored file goes first,
// best-effort: a failed file delete is logged and never blocks removal of
// the record.
func (s *ItemService) Delete(ctx context.Context, clipboardID, itemID uuid.UUID) error {
	it, err := s.fetchOwned(ctx, clipboardID, itemID)
	if err != nil {
		return err
	}
	if it.Type.FileBacked() {
		s.deleteBackingFile(ctx, it)
	}
	return s.items.Delete(ctx, itemID)
}

// ServeFile streams the stored file behind an image/file item. The caller
// gets the bytes, the server-derived content type and the original name.
func (s *ItemService) ServeFile(ctx context.Context, clipboardID, itemID uuid.UUID, access Access) (io.ReadCloser, *model.FileMeta, string, error) {
	if err := s.gate.Check(ctx, clipboardID, access); err != nil {
		return nil, nil, "", err
	}
	it, err := s.fetchOwned(ctx, clipboardID, itemID)
	if err != nil {
		return nil, nil, "", err
	}
	if !it.Type.FileBacked() {
		return nil, nil, "", fmt.Errorf("item %s holds no file: %w", itemID, errs.ErrInvalidInput)
	}

	meta, err := s.decryptMeta(it)
	if err != nil {
		return nil, nil, "", err
	}
	rc, ct, err := s.files.Open(ctx, meta.FilePath)
	if err != nil {
		return nil, nil, "", err
	}
	return rc, meta, ct, nil
}

// fetchOwned loads an item and confirms it belongs to the clipboard the
// caller was admitted to. A cross-clipboard item id reads as not found.
func (s *ItemService) fetchOwned(ctx context.Context, clipboardID, itemID uuid.UUID) (*model.ClipboardItem, error) {
	it, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it.ClipboardID != clipboardID {
		return nil, errs.ErrNotFound
	}
	return it, nil
}

func (s *ItemService) encryptAndPut(ctx context.Context, clipboardID, id uuid.UUID, typ model.ItemType, plaintext string) (*model.ClipboardItem, error) {
	ct, iv, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		if id, err = uuid.NewV4(); err != nil {
			return nil, err
		}
	}
	it := &model.ClipboardItem{
		ID:          id,
		ClipboardID: clipboardID,
		Type:        typ,
		Content:     ct,
		IV:          iv,
	}
	if err := s.items.Put(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *ItemService) decryptItem(it *model.ClipboardItem) (*model.PlaintextItem, error) {
	pt, err := s.cipher.Decrypt(it.Content, it.IV)
	if err != nil {
		return nil, err
	}
	out := &model.PlaintextItem{
		ID:          it.ID,
		ClipboardID: it.ClipboardID,
		Type:        it.Type,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
	if it.Type.FileBacked() {
		var meta model.FileMeta
		if err := json.Unmarshal([]byte(pt), &meta); err != nil {
			return nil, fmt.Errorf("file metadata is not valid JSON: %w", errs.ErrDecryption)
		}
		out.File = &meta
	} else {
		out.Content = pt
	}
	return out, nil
}

func (s *ItemService) decryptMeta(it *model.ClipboardItem) (*model.FileMeta, error) {
	pt, err := s.decryptItem(it)
	if err != nil {
		return nil, err
	}
	if pt.File == nil {
		return nil, fmt.Errorf("item %s carries no file metadata: %w", it.ID, errs.ErrDecryption)
	}
	return pt.File, nil
}

// deleteBackingFile resolves and deletes an item's stored file. Failures
// are logged, never propagated: a dangling file must not block removal of
// its owning record.
func (s *ItemService) deleteBackingFile(ctx context.Context, it *model.ClipboardItem) {
	meta, err := s.decryptMeta(it)
	if err != nil {
		s.log.Warn("cannot resolve backing file for deletion",
			zap.String("item_id", it.ID.String()),
			zap.Error(err),
		)
		return
	}
	s.removeFile(ctx, meta.FilePath)
}

func (s *ItemService) removeFile(ctx context.Context, ref string) {
	if err := s.files.Delete(ctx, ref); err != nil && !errors.Is(err, errs.ErrNotFound) {
		s.log.Warn("stored file delete failed", zap.String("ref", ref), zap.Error(err))
	}
}
