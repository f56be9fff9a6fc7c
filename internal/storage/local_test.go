package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	payload := []byte("scan output bytes")

	handle, err := store.Save(bytes.NewReader(payload), "report.pdf", "task_7", "evidence")
	require.NoError(t, err)

	assert.False(t, filepath.IsAbs(handle))
	assert.NotContains(t, handle, "..")
	assert.True(t, strings.HasPrefix(handle, "task_7"+string(filepath.Separator)))
	assert.True(t, strings.HasSuffix(handle, ".pdf"))

	rc, err := store.Open(handle)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	first, err := store.Save(strings.NewReader("a"), "same.txt", "sub", "file")
	require.NoError(t, err)

	second, err := store.Save(strings.NewReader("b"), "same.txt", "sub", "file")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestSaveSanitizesUnsafeSegments(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root)

	handle, err := store.Save(strings.NewReader("x"), "../../../etc/passwd", "../..", "../")
	require.NoError(t, err)

	// Unsafe subfolder and prefix fall back to the literal defaults.
	assert.True(t, strings.HasPrefix(handle, "default"+string(filepath.Separator)+"file_"))

	full := store.FullPath(handle)
	require.NotEmpty(t, full)
	assert.True(t, strings.HasPrefix(full, root))
}

func TestSaveWithoutExtensionUsesDat(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	handle, err := store.Save(strings.NewReader("x"), "README", "docs", "file")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(handle, ".dat"))
}

func TestFullPathRejectsTraversal(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	for _, handle := range []string{
		"../secret.txt",
		"../../etc/passwd",
		"sub/../../escape.txt",
		"/etc/passwd",
		"..",
	} {
		assert.Empty(t, store.FullPath(handle), "handle %q must not resolve", handle)
	}
}

func TestOpenMissingFile(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	_, err := store.Open("default/nope.dat")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSemantics(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	handle, err := store.Save(strings.NewReader("x"), "a.txt", "sub", "file")
	require.NoError(t, err)

	assert.True(t, store.Delete(handle))
	assert.False(t, store.Delete(handle), "second delete reports false, not an error")
	assert.False(t, store.Delete("../outside.txt"))

	_, err = os.Stat(filepath.Join(store.root, handle))
	assert.True(t, os.IsNotExist(err))
}

func TestUnconfiguredRoot(t *testing.T) {
	store := NewLocalStore("")

	_, err := store.Save(strings.NewReader("x"), "a.txt", "sub", "file")
	assert.ErrorIs(t, err, ErrUnconfigured)

	_, err = store.Open("sub/a.txt")
	assert.ErrorIs(t, err, ErrUnconfigured)

	assert.False(t, store.Delete("sub/a.txt"))
	assert.Empty(t, store.FullPath("sub/a.txt"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my scan results.txt", "my_scan_results.txt"},
		{"../../etc/passwd", "passwd"},
		{`..\..\windows\system32`, "system32"},
		{".hidden", "hidden"},
		{"...", ""},
		{"", ""},
		{"nul\x00l.txt", "null.txt"},
		{"weird*chars?here.txt", "weirdcharshere.txt"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}
