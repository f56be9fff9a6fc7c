package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/attestor-dev/attestor/internal/authz"
	"github.com/attestor-dev/attestor/internal/models"
	"github.com/attestor-dev/attestor/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Priority    string `json:"priority"`
	ProjectType string `json:"project_type"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Priority    *string `json:"priority"`
	ProjectType *string `json:"project_type"`
}

type ProjectResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	OwnerID     uint    `json:"owner_id"`
	Priority    string  `json:"priority"`
	ProjectType string  `json:"project_type"`
}

func projectResponse(project *models.Project) ProjectResponse {
	return ProjectResponse{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Status:      project.Status,
		StartDate:   formatDate(project.StartDate),
		EndDate:     formatDate(project.EndDate),
		OwnerID:     project.OwnerID,
		Priority:    project.Priority,
		ProjectType: project.ProjectType,
	}
}

func (h *Handler) CreateProject(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if d := authz.CanCreate(actor); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	var body CreateProjectRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing project name"})
		return
	}

	status := body.Status
	if status == "" {
		status = "active"
	}

	priority := body.Priority
	if priority == "" {
		priority = "Medium"
	}

	// Ownership is forced to the acting user; clients cannot set it.
	project := models.Project{
		Name:        body.Name,
		Description: body.Description,
		Status:      status,
		StartDate:   parseDate(body.StartDate),
		EndDate:     parseDate(body.EndDate),
		OwnerID:     actor.ID,
		Priority:    priority,
		ProjectType: body.ProjectType,
	}

	if err := h.DB.Create(&project).Error; err != nil {
		log.Printf("Failed to create project: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	ctx.JSON(http.StatusCreated, projectResponse(&project))
}

func (h *Handler) ListProjects(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var projects []models.Project

	if err := h.DB.Scopes(authz.ProjectScope(actor)).Find(&projects).Error; err != nil {
		log.Printf("Failed to list projects: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve projects"})
		return
	}

	response := make([]ProjectResponse, 0, len(projects))

	for i := range projects {
		response = append(response, projectResponse(&projects[i]))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *Handler) GetProject(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	project, ok := h.loadProject(ctx)
	if !ok {
		return
	}

	if d := authz.Authorize(actor, authz.OpRead, project.OwnerID); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	ctx.JSON(http.StatusOK, projectResponse(project))
}

func (h *Handler) UpdateProject(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	project, ok := h.loadProject(ctx)
	if !ok {
		return
	}

	if d := authz.Authorize(actor, authz.OpUpdate, project.OwnerID); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	var body UpdateProjectRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if body.Name != nil {
		project.Name = *body.Name
	}
	if body.Description != nil {
		project.Description = *body.Description
	}
	if body.Status != nil {
		project.Status = *body.Status
	}
	if body.Priority != nil {
		project.Priority = *body.Priority
	}
	if body.ProjectType != nil {
		project.ProjectType = *body.ProjectType
	}
	// Presence of the key clears or sets the date; bad values become null.
	if body.StartDate != nil {
		project.StartDate = parseDate(*body.StartDate)
	}
	if body.EndDate != nil {
		project.EndDate = parseDate(*body.EndDate)
	}

	if err := h.DB.Save(project).Error; err != nil {
		log.Printf("Failed to update project %d: %v", project.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		return
	}

	ctx.JSON(http.StatusOK, projectResponse(project))
}

func (h *Handler) DeleteProject(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	project, ok := h.loadProject(ctx)
	if !ok {
		return
	}

	if d := authz.Authorize(actor, authz.OpDeleteProject, project.OwnerID); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	// Hard delete so the FK cascade fires: tasks and their evidence rows go
	// with the project.
	if err := h.DB.Unscoped().Delete(project).Error; err != nil {
		log.Printf("Failed to delete project %d: %v", project.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

func (h *Handler) loadProject(ctx *gin.Context) (*models.Project, bool) {
	projectID, err := utils.IDParam(ctx, "project_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	var project models.Project

	if err := h.DB.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			log.Printf("Failed to fetch project %d: %v", projectID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
		}
		return nil, false
	}

	return &project, true
}
