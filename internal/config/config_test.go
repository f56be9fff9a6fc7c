package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/attestor_test")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, "local", cfg.StorageBackend)
	assert.Equal(t, int64(25<<20), cfg.MaxUploadBytes)
	assert.Contains(t, cfg.AllowedExtensions, "pdf")
	assert.Contains(t, cfg.AllowedExtensions, "nessus")
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/x")
	t.Setenv("JWT_SECRET", "")

	_, err = Load()
	assert.Error(t, err)
}

func TestExtensionAllowed(t *testing.T) {
	cfg := &Config{AllowedExtensions: []string{"pdf", "txt"}}

	assert.True(t, cfg.ExtensionAllowed("report.pdf"))
	assert.True(t, cfg.ExtensionAllowed("REPORT.PDF"))
	assert.True(t, cfg.ExtensionAllowed("notes.txt"))
	assert.False(t, cfg.ExtensionAllowed("shell.exe"))
	assert.False(t, cfg.ExtensionAllowed("no_extension"))
	assert.False(t, cfg.ExtensionAllowed(""))
}

func TestCustomExtensionList(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/x")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ALLOWED_EVIDENCE_EXTENSIONS", "PDF, docx ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"pdf", "docx"}, cfg.AllowedExtensions)
	assert.True(t, cfg.ExtensionAllowed("a.docx"))
	assert.False(t, cfg.ExtensionAllowed("a.txt"))
}
