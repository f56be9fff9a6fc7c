package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/attestor-dev/attestor/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SSOProfile is the identity Azure AD asserts for the caller.
type SSOProfile struct {
	ObjectID    string
	Email       string
	DisplayName string
}

// ProfileFetcher resolves an already-issued provider access token into a
// profile. The OAuth dance itself happens elsewhere; this is the only piece
// of the SSO flow the backend depends on.
type ProfileFetcher interface {
	Fetch(ctx context.Context, accessToken string) (*SSOProfile, error)
}

// GraphProfileFetcher reads the caller's profile from Microsoft Graph.
type GraphProfileFetcher struct {
	BaseURL string // defaults to the public Graph endpoint
	Client  *http.Client
}

func (g *GraphProfileFetcher) Fetch(ctx context.Context, accessToken string) (*SSOProfile, error) {
	base := g.BaseURL
	if base == "" {
		base = "https://graph.microsoft.com/v1.0"
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph profile request failed with status %d", resp.StatusCode)
	}

	var payload struct {
		ID                string `json:"id"`
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
		DisplayName       string `json:"displayName"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	email := payload.Mail
	if email == "" {
		email = payload.UserPrincipalName
	}

	return &SSOProfile{
		ObjectID:    payload.ID,
		Email:       strings.ToLower(strings.TrimSpace(email)),
		DisplayName: payload.DisplayName,
	}, nil
}

type SSOLoginRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
}

// AzureSSOLogin authenticates a user by their Azure AD identity. Matching
// order: existing linked account by object id, then an existing local account
// by email (which gets linked in place, keeping its id and password), and
// finally a fresh SSO-only account with a uniquified username. All three
// paths end with the same bearer token local login issues.
func (h *Handler) AzureSSOLogin(ctx *gin.Context) {
	var body SSOLoginRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing access_token"})
		return
	}

	profile, err := h.SSO.Fetch(ctx.Request.Context(), body.AccessToken)

	if err != nil {
		log.Printf("Failed to fetch SSO profile: %v", err)
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Could not verify identity with the SSO provider"})
		return
	}

	if profile.ObjectID == "" || profile.Email == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "SSO profile is missing an object id or email"})
		return
	}

	var user models.User

	err = h.DB.Where("azure_oid = ?", profile.ObjectID).First(&user).Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when fetching SSO user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		// No linked account yet; link by email or provision.
		err = h.DB.Where("email = ?", profile.Email).First(&user).Error

		switch {
		case err == nil:
			oid := profile.ObjectID
			user.AzureOID = &oid
			if err := h.DB.Save(&user).Error; err != nil {
				log.Printf("Failed to link SSO identity to user %d: %v", user.ID, err)
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			created, err := h.provisionSSOUser(profile)
			if err != nil {
				log.Printf("Failed to provision SSO user: %v", err)
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
			user = *created
		default:
			log.Printf("Database error when matching SSO user by email: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	token, err := h.Tokens.Generate(user.ID, user.Email)

	if err != nil {
		log.Printf("Failed to generate JWT: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"user":         userResponse(&user),
	})
}

func (h *Handler) provisionSSOUser(profile *SSOProfile) (*models.User, error) {
	base := strings.TrimSpace(profile.DisplayName)
	if base == "" {
		base = strings.SplitN(profile.Email, "@", 2)[0]
	}

	username, err := h.uniqueUsername(base)
	if err != nil {
		return nil, err
	}

	oid := profile.ObjectID
	user := models.User{
		Username: username,
		Email:    profile.Email,
		AzureOID: &oid,
		Role:     models.RoleReadOnly,
	}

	if err := h.DB.Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// uniqueUsername appends a counter suffix until the candidate is free.
func (h *Handler) uniqueUsername(base string) (string, error) {
	candidate := base

	for i := 2; ; i++ {
		var existing models.User

		err := h.DB.Where("username = ?", candidate).First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return candidate, nil
		}

		if err != nil {
			return "", err
		}

		candidate = fmt.Sprintf("%s%d", base, i)
	}
}
