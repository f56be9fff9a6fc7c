package handlers

import (
	"time"

	"github.com/attestor-dev/attestor/internal/auth"
	"github.com/attestor-dev/attestor/internal/config"
	"github.com/attestor-dev/attestor/internal/storage"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Handler carries every dependency the request handlers need. It is built
// once at startup and injected into the router; there is no ambient state.
type Handler struct {
	DB     *gorm.DB
	Store  storage.BlobStore
	Tokens *auth.TokenManager
	Cfg    *config.Config
	SSO    ProfileFetcher
}

func New(gdb *gorm.DB, store storage.BlobStore, tokens *auth.TokenManager, cfg *config.Config, sso ProfileFetcher) *Handler {
	return &Handler{
		DB:     gdb,
		Store:  store,
		Tokens: tokens,
		Cfg:    cfg,
		SSO:    sso,
	}
}

// parseDate parses an ISO calendar date. Anything unparsable deliberately
// becomes nil rather than an error; clients clearing a date send "" or junk
// and get null either way.
func parseDate(s string) *datatypes.Date {
	if s == "" {
		return nil
	}

	t, err := time.Parse("2006-01-02", s)

	if err != nil {
		return nil
	}

	d := datatypes.Date(t)
	return &d
}

func formatDate(d *datatypes.Date) *string {
	if d == nil {
		return nil
	}

	s := time.Time(*d).Format("2006-01-02")
	return &s
}
