package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/attestor-dev/attestor/internal/storage"
)

// Default allowed origins for development
var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

var defaultExtensions = []string{
	"pdf", "png", "jpg", "jpeg", "txt", "csv", "xml", "json", "html", "zip", "nessus",
}

// Config is built once at startup and handed to every component that needs
// it; nothing reads the environment after Load returns.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	UploadDir         string
	MaxUploadBytes    int64
	AllowedExtensions []string

	StorageBackend string // "local" or "s3"
	S3             storage.S3Config

	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:           getenv("PORT", "3000"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		UploadDir:      getenv("UPLOAD_DIR", "uploads"),
		StorageBackend: getenv("STORAGE_BACKEND", "local"),
		S3: storage.S3Config{
			Region:       os.Getenv("S3_REGION"),
			Bucket:       os.Getenv("S3_BUCKET"),
			AccessKey:    os.Getenv("S3_ACCESS_KEY"),
			SecretKey:    os.Getenv("S3_SECRET_KEY"),
			BaseEndpoint: os.Getenv("S3_ENDPOINT"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is not set")
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is not set")
	}

	maxMB := int64(25)
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, errors.New("MAX_UPLOAD_MB must be a positive integer")
		}
		maxMB = parsed
	}
	cfg.MaxUploadBytes = maxMB << 20

	cfg.AllowedExtensions = defaultExtensions
	if v := os.Getenv("ALLOWED_EVIDENCE_EXTENSIONS"); v != "" {
		cfg.AllowedExtensions = splitCSV(v)
	}

	cfg.AllowedOrigins = loadAllowedOrigins()

	return cfg, nil
}

// ExtensionAllowed checks a client filename against the configured evidence
// allow-list. Files without an extension are never allowed.
func (c *Config) ExtensionAllowed(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func loadAllowedOrigins() []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL := os.Getenv("CLIENT_URL"); clientURL != "" {
		origins = append(origins, clientURL)
	}

	if allowedOrigins := os.Getenv("ALLOWED_ORIGINS"); allowedOrigins != "" {
		origins = append(origins, splitCSV(allowedOrigins)...)
	}

	return origins
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
