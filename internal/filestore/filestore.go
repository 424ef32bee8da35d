// Package filestore persists uploaded binary files under a single private
// root directory. Stored names are generated, never client-supplied; every
// lookup passes a traversal check before touching the filesystem.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/akulinich/clipshare/internal/errs"
	"github.com/akulinich/clipshare/internal/model"
)

// RefPrefix is the prefix all stored-file references carry. Items never
// reference files by absolute path.
const RefPrefix = "/uploads/"

// DefaultMaxSize is the upload size limit applied when none is configured.
const DefaultMaxSize = 10 << 20 // 10 MiB

// contentTypes maps allowed extensions to the content type served for them.
// Serving never trusts a client-supplied content-type header.
var contentTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",

	// Documents
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
	".log":  "text/plain",

	// Office
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",

	// Archives
	".zip": "application/zip",
	".rar": "application/x-rar-compressed",
	".7z":  "application/x-7z-compressed",
}

// Upload describes an incoming file before it is persisted.
type Upload struct {
	Name string // client-supplied name, used only for extension and metadata
	Size int64  // declared size; the store re-checks while copying
	Data io.Reader
}

// Store owns the upload root directory.
type Store struct {
	root    string // absolute
	maxSize int64
	log     *zap.Logger
}

// New creates the upload root if absent and returns a store scoped to it.
func New(root string, maxSize int64, log *zap.Logger) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Store{root: abs, maxSize: maxSize, log: log}, nil
}

// ValidateType reports whether the file's extension is on the allow-list.
func ValidateType(filename string) bool {
	_, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ContentType returns the served content type for an allowed filename.
func ContentType(filename string) (string, bool) {
	ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]
	return ct, ok
}

// Save validates and persists an upload under a generated collision-free
// name and returns the metadata that gets encrypted into the owning item.
// Bytes are written to a temp file and renamed into place so a partial
// write never becomes servable.
func (s *Store) Save(ctx context.Context, up Upload) (model.FileMeta, error) {
	if up.Name == "" || up.Data == nil {
		return model.FileMeta{}, fmt.Errorf("missing file name or data: %w", errs.ErrInvalidInput)
	}
	if !ValidateType(up.Name) {
		return model.FileMeta{}, fmt.Errorf("extension of %q: %w", up.Name, errs.ErrUnsupportedType)
	}
	if up.Size > s.maxSize {
		return model.FileMeta{}, fmt.Errorf("declared size %d exceeds limit %d: %w", up.Size, s.maxSize, errs.ErrFileTooLarge)
	}
	if err := ctx.Err(); err != nil {
		return model.FileMeta{}, err
	}

	ext := strings.ToLower(filepath.Ext(up.Name))
	id, err := uuid.NewV4()
	if err != nil {
		return model.FileMeta{}, err
	}
	name := id.String() + ext
	dst := filepath.Join(s.root, name)

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return model.FileMeta{}, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // no-op after a successful rename
	}()

	// Copy at most maxSize+1 bytes: one extra byte distinguishes "exactly
	// at the limit" from "over it" without trusting the declared size.
	n, err := io.Copy(tmp, io.LimitReader(up.Data, s.maxSize+1))
	if err != nil {
		return model.FileMeta{}, fmt.Errorf("write upload: %w", err)
	}
	if n > s.maxSize {
		return model.FileMeta{}, fmt.Errorf("upload exceeds limit %d: %w", s.maxSize, errs.ErrFileTooLarge)
	}
	if err := tmp.Close(); err != nil {
		return model.FileMeta{}, fmt.Errorf("flush upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return model.FileMeta{}, fmt.Errorf("finalize upload: %w", err)
	}

	ct, _ := ContentType(up.Name)
	return model.FileMeta{
		FilePath:     RefPrefix + name,
		OriginalName: up.Name,
		MimeType:     ct,
		Size:         n,
	}, nil
}

// Resolve turns a stored-file reference into an absolute path inside the
// root. References containing a parent segment or not rooted at RefPrefix
// are rejected before any filesystem call; rejections are logged as
// security events with the offending reference, never echoed to callers.
func (s *Store) Resolve(ref string) (string, error) {
	if !strings.HasPrefix(ref, RefPrefix) {
		s.logViolation(ref, "reference outside upload prefix")
		return "", errs.ErrPathTraversal
	}
	for _, seg := range strings.Split(ref, "/") {
		if seg == ".." {
			s.logViolation(ref, "parent directory segment")
			return "", errs.ErrPathTraversal
		}
	}

	name := path.Clean(strings.TrimPrefix(ref, RefPrefix))
	abs := filepath.Join(s.root, filepath.FromSlash(name))

	// Belt and braces: the cleaned absolute path must still live in root.
	if rel, err := filepath.Rel(s.root, abs); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		s.logViolation(ref, "cleaned path escapes root")
		return "", errs.ErrPathTraversal
	}
	return abs, nil
}

// Read returns the full contents and served content type for a reference.
func (s *Store) Read(ctx context.Context, ref string) ([]byte, string, error) {
	rc, ct, err := s.Open(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", ref, err)
	}
	return b, ct, nil
}

// Open returns a streaming reader and served content type for a reference.
// A missing file yields errs.ErrNotFound; a read racing a delete is a
// normal outcome for callers, not a crash.
func (s *Store) Open(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	abs, err := s.Resolve(ref)
	if err != nil {
		return nil, "", err
	}
	ct, ok := ContentType(abs)
	if !ok {
		return nil, "", fmt.Errorf("extension of %q: %w", ref, errs.ErrUnsupportedType)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", errs.ErrNotFound
		}
		return nil, "", fmt.Errorf("open %s: %w", ref, err)
	}
	return f, ct, nil
}

// Delete removes the referenced file. Idempotent: an already-gone file is
// success. Other I/O failures are returned for the caller to log; they must
// never block deletion of the owning item record.
func (s *Store) Delete(ctx context.Context, ref string) error {
	abs, err := s.Resolve(ref)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

func (s *Store) logViolation(ref, reason string) {
	if s.log != nil {
		s.log.Warn("path traversal rejected",
			zap.String("ref", ref),
			zap.String("reason", reason),
		)
	}
}
