package handlers

import (
	"log"
	"net/http"

	"github.com/attestor-dev/attestor/internal/authz"
	"github.com/attestor-dev/attestor/internal/models"
	"github.com/attestor-dev/attestor/internal/utils"
	"github.com/gin-gonic/gin"
)

// ListUsers returns the user directory (for assignment pickers and the
// like). Password hashes never leave the database.
func (h *Handler) ListUsers(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if d := authz.ConsultantOrAdmin(actor); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	var users []models.User

	if err := h.DB.Find(&users).Error; err != nil {
		log.Printf("Failed to list users: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	response := make([]UserResponse, 0, len(users))

	for i := range users {
		response = append(response, userResponse(&users[i]))
	}

	ctx.JSON(http.StatusOK, response)
}
