package handlers_test

import (
	"net/http"
	"testing"

	"github.com/attestor-dev/attestor/internal/handlers"
	"github.com/attestor-dev/attestor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "c1",
		"email":    "c1@example.com",
		"password": "password123",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	user := body["user"].(map[string]any)
	assert.Equal(t, "c1", user["username"])
	assert.Equal(t, string(models.RoleReadOnly), user["role"])

	w = app.do(t, http.MethodPost, "/auth/login", map[string]string{
		"username": "c1",
		"password": "password123",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	token := decode(t, w)["access_token"].(string)
	require.NotEmpty(t, token)

	req := app.do(t, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, req.Code)

	userID, err := app.tokens.Verify(token)
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, app.db.First(&stored, userID).Error)
	assert.Equal(t, "c1", stored.Username)
}

func TestRegisterDuplicates(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "taken", models.RoleConsultant)

	w := app.do(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "taken",
		"email":    "fresh@example.com",
		"password": "password123",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Username already exists")

	w = app.do(t, http.MethodPost, "/auth/register", map[string]string{
		"username": "fresh",
		"email":    "taken@example.com",
		"password": "password123",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Email already exists")
}

func TestLoginFailures(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "c1", models.RoleConsultant)

	w := app.do(t, http.MethodPost, "/auth/login", map[string]string{
		"username": "c1",
		"password": "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, http.MethodPost, "/auth/login", map[string]string{
		"username": "ghost",
		"password": "password123",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSSOOnlyAccountCannotLoginLocally(t *testing.T) {
	app := newTestApp(t)

	oid := "X999"
	ssoUser := models.User{
		Username: "sso-only",
		Email:    "sso-only@example.com",
		AzureOID: &oid,
		Role:     models.RoleReadOnly,
	}
	require.NoError(t, app.db.Create(&ssoUser).Error)

	w := app.do(t, http.MethodPost, "/auth/login", map[string]string{
		"username": "sso-only",
		"password": "anything-at-all",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe(t *testing.T) {
	app := newTestApp(t)
	admin := app.createUser(t, "admin", models.RoleAdmin)

	w := app.do(t, http.MethodGet, "/api/me", nil, &admin)
	require.Equal(t, http.StatusOK, w.Code)

	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "admin", user["username"])
	assert.Equal(t, string(models.RoleAdmin), user["role"])
}

func TestAuthMiddlewareRejections(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/users", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A valid token whose user has since been deleted must fail too.
	ghost := app.createUser(t, "ghost", models.RoleConsultant)
	require.NoError(t, app.db.Unscoped().Delete(&ghost).Error)

	w = app.do(t, http.MethodGet, "/api/me", nil, &ghost)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, decode(t, w)["error"], "User not found")
}

func TestSSONewUserProvisioned(t *testing.T) {
	app := newTestApp(t)
	app.h.SSO = &fakeFetcher{profile: &handlers.SSOProfile{
		ObjectID:    "X123",
		Email:       "new.person@example.com",
		DisplayName: "NewPerson",
	}}

	w := app.do(t, http.MethodPost, "/auth/sso/azure", map[string]string{"access_token": "provider-token"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["access_token"])

	var user models.User
	require.NoError(t, app.db.Where("azure_oid = ?", "X123").First(&user).Error)
	assert.Equal(t, "new.person@example.com", user.Email)
	assert.Equal(t, "NewPerson", user.Username)
	assert.Nil(t, user.PasswordHash)
	assert.Equal(t, models.RoleReadOnly, user.Role)
}

func TestSSOLinksExistingAccountByEmail(t *testing.T) {
	app := newTestApp(t)
	local := app.createUser(t, "erin", models.RoleConsultant)

	app.h.SSO = &fakeFetcher{profile: &handlers.SSOProfile{
		ObjectID:    "X123",
		Email:       local.Email,
		DisplayName: "Erin E",
	}}

	w := app.do(t, http.MethodPost, "/auth/sso/azure", map[string]string{"access_token": "provider-token"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Linked in place: same row, now carrying both credentials.
	var linked models.User
	require.NoError(t, app.db.First(&linked, local.ID).Error)
	require.NotNil(t, linked.AzureOID)
	assert.Equal(t, "X123", *linked.AzureOID)
	assert.NotNil(t, linked.PasswordHash)
	assert.Equal(t, local.ID, linked.ID)

	var count int64
	app.db.Model(&models.User{}).Where("email = ?", local.Email).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestSSORepeatLogin(t *testing.T) {
	app := newTestApp(t)
	app.h.SSO = &fakeFetcher{profile: &handlers.SSOProfile{
		ObjectID:    "X456",
		Email:       "repeat@example.com",
		DisplayName: "Repeat",
	}}

	first := app.do(t, http.MethodPost, "/auth/sso/azure", map[string]string{"access_token": "tok"}, nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := app.do(t, http.MethodPost, "/auth/sso/azure", map[string]string{"access_token": "tok"}, nil)
	require.Equal(t, http.StatusOK, second.Code)

	var count int64
	app.db.Model(&models.User{}).Where("azure_oid = ?", "X456").Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestSSOUsernameCollisionUniquified(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "sam", models.RoleConsultant)

	app.h.SSO = &fakeFetcher{profile: &handlers.SSOProfile{
		ObjectID:    "X789",
		Email:       "other.sam@example.com",
		DisplayName: "sam",
	}}

	w := app.do(t, http.MethodPost, "/auth/sso/azure", map[string]string{"access_token": "tok"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	require.NoError(t, app.db.Where("azure_oid = ?", "X789").First(&user).Error)
	assert.Equal(t, "sam2", user.Username)
}
