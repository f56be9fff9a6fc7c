package utils

import (
	"fmt"

	"github.com/attestor-dev/attestor/internal/authz"
	"github.com/attestor-dev/attestor/internal/middleware"
	"github.com/gin-gonic/gin"
)

func GetCurrentUser(ctx *gin.Context) (middleware.AuthenticatedUser, error) {
	user, exists := ctx.Get(middleware.ContextUserKey)

	if !exists {
		return middleware.AuthenticatedUser{}, fmt.Errorf("user not authenticated")
	}

	authenticatedUser, ok := user.(middleware.AuthenticatedUser)

	if !ok {
		return middleware.AuthenticatedUser{}, fmt.Errorf("invalid user type in context")
	}

	return authenticatedUser, nil
}

// GetActor narrows the authenticated user down to what the authorization
// predicate needs.
func GetActor(ctx *gin.Context) (authz.Actor, error) {
	user, err := GetCurrentUser(ctx)

	if err != nil {
		return authz.Actor{}, err
	}

	return authz.Actor{ID: user.ID, Role: user.Role}, nil
}
