package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/attestor-dev/attestor/internal/authz"
	"github.com/attestor-dev/attestor/internal/models"
	"github.com/attestor-dev/attestor/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateBaselineRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type TaskDefinitionRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type UpdateTaskDefinitionRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

type BaselineResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedByID uint   `json:"created_by_id"`
}

type TaskDefinitionResponse struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	BaselineID  uint   `json:"baseline_id"`
}

func baselineResponse(b *models.Baseline) BaselineResponse {
	return BaselineResponse{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		CreatedByID: b.CreatedByID,
	}
}

func taskDefinitionResponse(td *models.TaskDefinition) TaskDefinitionResponse {
	return TaskDefinitionResponse{
		ID:          td.ID,
		Title:       td.Title,
		Description: td.Description,
		Category:    td.Category,
		BaselineID:  td.BaselineID,
	}
}

func (h *Handler) CreateBaseline(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if d := authz.CanCreate(actor); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	var body CreateBaselineRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing baseline name"})
		return
	}

	var existing models.Baseline

	err = h.DB.Where("name = ?", body.Name).First(&existing).Error

	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Baseline with name '%s' already exists", body.Name)})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking baseline name: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	baseline := models.Baseline{
		Name:        body.Name,
		Description: body.Description,
		CreatedByID: actor.ID,
	}

	if err := h.DB.Create(&baseline).Error; err != nil {
		log.Printf("Failed to create baseline: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create baseline"})
		return
	}

	ctx.JSON(http.StatusCreated, baselineResponse(&baseline))
}

func (h *Handler) ListBaselines(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	// Baselines are shared templates: every consultant sees all of them.
	if d := authz.ConsultantOrAdmin(actor); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	var baselines []models.Baseline

	if err := h.DB.Find(&baselines).Error; err != nil {
		log.Printf("Failed to list baselines: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve baselines"})
		return
	}

	response := make([]BaselineResponse, 0, len(baselines))

	for i := range baselines {
		response = append(response, baselineResponse(&baselines[i]))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *Handler) GetBaseline(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if d := authz.ConsultantOrAdmin(actor); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	baseline, ok := h.loadBaseline(ctx)
	if !ok {
		return
	}

	var definitions []models.TaskDefinition

	if err := h.DB.Where("baseline_id = ?", baseline.ID).Find(&definitions).Error; err != nil {
		log.Printf("Failed to list task definitions for baseline %d: %v", baseline.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task definitions"})
		return
	}

	definitionData := make([]TaskDefinitionResponse, 0, len(definitions))

	for i := range definitions {
		definitionData = append(definitionData, taskDefinitionResponse(&definitions[i]))
	}

	ctx.JSON(http.StatusOK, gin.H{
		"id":               baseline.ID,
		"name":             baseline.Name,
		"description":      baseline.Description,
		"created_by_id":    baseline.CreatedByID,
		"task_definitions": definitionData,
	})
}

func (h *Handler) DeleteBaseline(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	baseline, ok := h.loadBaseline(ctx)
	if !ok {
		return
	}

	if d := authz.Authorize(actor, authz.OpDelete, baseline.CreatedByID); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	// Hard delete so the FK cascade takes the task definitions with it.
	if err := h.DB.Unscoped().Delete(baseline).Error; err != nil {
		log.Printf("Failed to delete baseline %d: %v", baseline.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete baseline"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Baseline deleted successfully"})
}

func (h *Handler) CreateTaskDefinition(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	baseline, ok := h.loadBaseline(ctx)
	if !ok {
		return
	}

	// Task definitions have no owner of their own; mutation rights follow
	// the parent baseline's creator.
	if d := authz.Authorize(actor, authz.OpUpdate, baseline.CreatedByID); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	var body TaskDefinitionRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing task definition title"})
		return
	}

	definition := models.TaskDefinition{
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
		BaselineID:  baseline.ID,
	}

	if err := h.DB.Create(&definition).Error; err != nil {
		log.Printf("Failed to create task definition: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task definition"})
		return
	}

	ctx.JSON(http.StatusCreated, taskDefinitionResponse(&definition))
}

func (h *Handler) UpdateTaskDefinition(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	definition, baseline, ok := h.loadTaskDefinition(ctx)
	if !ok {
		return
	}

	if d := authz.Authorize(actor, authz.OpUpdate, baseline.CreatedByID); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	var body UpdateTaskDefinitionRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if body.Title != nil {
		definition.Title = *body.Title
	}
	if body.Description != nil {
		definition.Description = *body.Description
	}
	if body.Category != nil {
		definition.Category = *body.Category
	}

	if err := h.DB.Save(definition).Error; err != nil {
		log.Printf("Failed to update task definition %d: %v", definition.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task definition"})
		return
	}

	ctx.JSON(http.StatusOK, taskDefinitionResponse(definition))
}

func (h *Handler) DeleteTaskDefinition(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	definition, baseline, ok := h.loadTaskDefinition(ctx)
	if !ok {
		return
	}

	if d := authz.Authorize(actor, authz.OpDelete, baseline.CreatedByID); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	if err := h.DB.Unscoped().Delete(definition).Error; err != nil {
		log.Printf("Failed to delete task definition %d: %v", definition.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task definition"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Task definition deleted successfully"})
}

func (h *Handler) loadBaseline(ctx *gin.Context) (*models.Baseline, bool) {
	baselineID, err := utils.IDParam(ctx, "baseline_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	var baseline models.Baseline

	if err := h.DB.First(&baseline, baselineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Baseline not found"})
		} else {
			log.Printf("Failed to fetch baseline %d: %v", baselineID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve baseline"})
		}
		return nil, false
	}

	return &baseline, true
}

// loadTaskDefinition resolves the definition and its parent baseline, which
// carries the ownership used for authorization. A definition whose baseline
// is gone means a cascade failed somewhere: that is a server-side
// consistency error, not a client mistake.
func (h *Handler) loadTaskDefinition(ctx *gin.Context) (*models.TaskDefinition, *models.Baseline, bool) {
	definitionID, err := utils.IDParam(ctx, "task_def_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}

	var definition models.TaskDefinition

	if err := h.DB.First(&definition, definitionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Task definition not found"})
		} else {
			log.Printf("Failed to fetch task definition %d: %v", definitionID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task definition"})
		}
		return nil, nil, false
	}

	var baseline models.Baseline

	if err := h.DB.First(&baseline, definition.BaselineID).Error; err != nil {
		log.Printf("CONSISTENCY: task definition %d references missing baseline %d: %v", definition.ID, definition.BaselineID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Associated baseline not found"})
		return nil, nil, false
	}

	return &definition, &baseline, true
}
