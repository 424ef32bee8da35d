// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/transport layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., clipboard name taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or missing request data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates failed owner authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAccessDenied indicates a failed PIN check. Deliberately covers both
	// "wrong pin" and "no such clipboard" so callers cannot probe existence.
	ErrAccessDenied = errors.New("access denied")

	// ErrConfiguration indicates missing or invalid startup configuration
	// (typically the encryption key). Fatal at process start.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrDecryption indicates a corrupted or mismatched ciphertext/iv pair.
	ErrDecryption = errors.New("decryption failed")

	// ErrMalformedHash indicates a stored secret hash that cannot be parsed.
	ErrMalformedHash = errors.New("malformed hash")

	// ErrUnsupportedType indicates an upload with a disallowed file extension.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrFileTooLarge indicates an upload exceeding the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrPathTraversal indicates a stored-file reference escaping the upload
	// root. Always rejected before any filesystem access.
	ErrPathTraversal = errors.New("path traversal")
)
