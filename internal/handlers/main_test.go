package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/attestor-dev/attestor/db"
	"github.com/attestor-dev/attestor/internal/auth"
	"github.com/attestor-dev/attestor/internal/config"
	"github.com/attestor-dev/attestor/internal/handlers"
	"github.com/attestor-dev/attestor/internal/models"
	"github.com/attestor-dev/attestor/internal/router"
	"github.com/attestor-dev/attestor/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testApp struct {
	router *gin.Engine
	db     *gorm.DB
	h      *handlers.Handler
	tokens *auth.TokenManager
	cfg    *config.Config
}

// fakeFetcher stands in for the Graph profile lookup in SSO tests.
type fakeFetcher struct {
	profile *handlers.SSOProfile
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context, accessToken string) (*handlers.SSOProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	cfg := &config.Config{
		Port:              "0",
		JWTSecret:         "test-secret",
		UploadDir:         t.TempDir(),
		MaxUploadBytes:    1 << 20,
		AllowedExtensions: []string{"pdf", "txt", "png"},
		StorageBackend:    "local",
		AllowedOrigins:    []string{"http://localhost:5173"},
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret)
	require.NoError(t, err)

	h := handlers.New(gdb, storage.NewLocalStore(cfg.UploadDir), tokens, cfg, &fakeFetcher{})

	return &testApp{
		router: router.New(h),
		db:     gdb,
		h:      h,
		tokens: tokens,
		cfg:    cfg,
	}
}

func (a *testApp) createUser(t *testing.T, username string, role models.Role) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	h := string(hash)
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: &h,
		Role:         role,
	}
	require.NoError(t, a.db.Create(&user).Error)

	return user
}

func (a *testApp) createProject(t *testing.T, owner *models.User, name string) models.Project {
	t.Helper()

	project := models.Project{
		Name:     name,
		Status:   "active",
		OwnerID:  owner.ID,
		Priority: "Medium",
	}
	require.NoError(t, a.db.Create(&project).Error)

	return project
}

func (a *testApp) createTask(t *testing.T, project *models.Project, title string) models.ProjectTask {
	t.Helper()

	task := models.ProjectTask{
		ProjectID: project.ID,
		Title:     title,
		Status:    "pending",
		Priority:  "Medium",
	}
	require.NoError(t, a.db.Create(&task).Error)

	return task
}

// do issues a JSON request as user (or anonymously when user is nil).
func (a *testApp) do(t *testing.T, method, path string, body any, user *models.User) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	a.authorize(t, req, user)

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	return w
}

// upload issues a multipart evidence upload.
func (a *testApp) upload(t *testing.T, path, filename string, content []byte, fields map[string]string, user *models.User) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	a.authorize(t, req, user)

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	return w
}

func (a *testApp) authorize(t *testing.T, req *http.Request, user *models.User) {
	t.Helper()

	if user == nil {
		return
	}

	token, err := a.tokens.Generate(user.ID, user.Email)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))

	return out
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()

	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))

	return out
}
