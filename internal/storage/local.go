package storage

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore keeps blobs on disk under a single upload root. Every path the
// store touches is resolved through FullPath, which is the sole traversal
// defense: a handle that escapes the root never reaches the filesystem.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	if root == "" {
		log.Println("storage: upload root not configured, local store disabled")
	}
	return &LocalStore{root: root}
}

func (s *LocalStore) Save(r io.Reader, originalName, subfolder, prefix string) (string, error) {
	if s.root == "" {
		return "", ErrUnconfigured
	}
	if r == nil || originalName == "" {
		return "", ErrInvalidInput
	}

	namePart := SanitizeFilename(originalName)
	if namePart == "" {
		namePart = "untitled"
	}
	ext := filepath.Ext(namePart)
	if ext == "" {
		ext = ".dat"
	}

	safePrefix := SanitizeFilename(prefix)
	if safePrefix == "" {
		safePrefix = "file"
	}

	safeSubfolder := SanitizeFilename(subfolder)
	if safeSubfolder == "" {
		safeSubfolder = "default"
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	handle := filepath.Join(safeSubfolder, fmt.Sprintf("%s_%s%s", safePrefix, token, ext))

	full := s.FullPath(handle)
	if full == "" {
		return "", ErrInvalidInput
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(full)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(full)
		return "", err
	}

	return handle, nil
}

func (s *LocalStore) Open(handle string) (io.ReadCloser, error) {
	if s.root == "" {
		return nil, ErrUnconfigured
	}

	full := s.FullPath(handle)
	if full == "" {
		return nil, ErrNotFound
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return nil, ErrNotFound
	}

	return os.Open(full)
}

func (s *LocalStore) Delete(handle string) bool {
	if s.root == "" || handle == "" {
		return false
	}

	full := s.FullPath(handle)
	if full == "" {
		return false
	}

	if info, err := os.Stat(full); err != nil || info.IsDir() {
		return false
	}

	if err := os.Remove(full); err != nil {
		log.Printf("storage: failed to delete %s: %v", full, err)
		return false
	}

	return true
}

// FullPath resolves a handle to an absolute path strictly inside the upload
// root, or "" when the handle is absolute or escapes the root after
// normalization.
func (s *LocalStore) FullPath(handle string) string {
	if s.root == "" || handle == "" {
		return ""
	}
	if filepath.IsAbs(handle) {
		return ""
	}

	root, err := filepath.Abs(s.root)
	if err != nil {
		return ""
	}
	root = filepath.Clean(root)

	candidate := filepath.Clean(filepath.Join(root, handle))
	if !strings.HasPrefix(candidate, root+string(filepath.Separator)) {
		log.Printf("storage: rejected unsafe handle %q under root %q", handle, s.root)
		return ""
	}

	return candidate
}
