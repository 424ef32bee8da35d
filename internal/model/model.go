// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// ItemType is the closed set of content kinds a clipboard item can hold.
type ItemType string

// Supported item types.
const (
	TypeText  ItemType = "text"
	TypeLink  ItemType = "link"
	TypeImage ItemType = "image"
	TypeFile  ItemType = "file"
)

// Valid reports whether t is one of the supported item types.
func (t ItemType) Valid() bool {
	switch t {
	case TypeText, TypeLink, TypeImage, TypeFile:
		return true
	}
	return false
}

// FileBacked reports whether items of this type reference a stored file.
func (t ItemType) FileBacked() bool { return t == TypeImage || t == TypeFile }

// Clipboard is a named, PIN-protected container for shared items.
// Pin always holds an argon2id hash, never the plaintext PIN.
type Clipboard struct {
	ID                uuid.UUID
	Name              string // unique among active clipboards, [A-Za-z0-9_-]+
	Description       string
	PinHash           string // PHC-encoded argon2id string
	IsActive          bool   // soft-delete flag
	RequirePinOnVisit bool   // true: re-verify every visit, no cached grant
	CreatedBy         uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ClipboardItem is one stored unit of content belonging to a clipboard.
// Content is always ciphertext; IV is the exact vector produced alongside it.
type ClipboardItem struct {
	ID          uuid.UUID
	ClipboardID uuid.UUID
	Type        ItemType
	Content     string // hex ciphertext (for image/file: encrypted FileMeta JSON)
	IV          string // hex, 16 bytes, never reused across encryptions
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FileMeta is the plaintext shape of an image/file item's content.
// It is the only reference to a stored file; the file itself is never
// addressed directly by clients.
type FileMeta struct {
	FilePath     string `json:"filePath"` // relative, rooted at /uploads/
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
}

// PlaintextItem is a decrypted item as returned to the transport layer.
// Exactly one of Content/File is meaningful, keyed by Type.
type PlaintextItem struct {
	ID          uuid.UUID
	ClipboardID uuid.UUID
	Type        ItemType
	Content     string    // text/link payload
	File        *FileMeta // image/file payload
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User is a clipboard owner account. PasswordHash is argon2id, never plaintext.
type User struct {
	ID           uuid.UUID
	Username     string // unique
	PasswordHash string
	CreatedAt    time.Time
}

// Tokens collects an issued owner access token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time
}
