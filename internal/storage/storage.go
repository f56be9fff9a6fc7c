package storage

import (
	"errors"
	"io"
	"strings"
)

var (
	ErrNotFound     = errors.New("storage: file not found")
	ErrUnconfigured = errors.New("storage: upload root not configured")
	ErrInvalidInput = errors.New("storage: invalid stream or filename")
)

// BlobStore abstracts where evidence binaries physically live. Handles are
// opaque, relative identifiers produced by Save; callers never treat them as
// filesystem paths themselves.
type BlobStore interface {
	// Save stores the stream under a collision-proof generated name inside
	// subfolder and returns the handle for it.
	Save(r io.Reader, originalName, subfolder, prefix string) (string, error)

	// Open returns the stored bytes, or ErrNotFound.
	Open(handle string) (io.ReadCloser, error)

	// Delete removes the blob. A missing file or unconfigured store yields
	// false, not an error.
	Delete(handle string) bool

	// FullPath resolves a handle to an absolute physical path, or "" when
	// the handle is unsafe or the backend has no physical paths.
	FullPath(handle string) string
}

// SanitizeFilename reduces a client-supplied name to a single safe path
// segment. Only the last path element is kept; null bytes are dropped,
// unsafe runes collapse to underscores and leading dots are stripped.
// An empty string comes back when nothing safe is left, so callers can
// substitute their own default.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\x00", "")
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}

	return strings.TrimLeft(b.String(), ".")
}
