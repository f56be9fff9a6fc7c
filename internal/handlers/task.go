package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/attestor-dev/attestor/internal/authz"
	"github.com/attestor-dev/attestor/internal/models"
	"github.com/attestor-dev/attestor/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateTaskRequest struct {
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	DueDate      string `json:"due_date"`
	AssignedToID *uint  `json:"assigned_to_id"`
}

type UpdateTaskRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Status       *string `json:"status"`
	Priority     *string `json:"priority"`
	DueDate      *string `json:"due_date"`
	AssignedToID *uint   `json:"assigned_to_id"`
	Unassign     bool    `json:"unassign"`
}

type TaskResponse struct {
	ID               uint    `json:"id"`
	ProjectID        uint    `json:"project_id"`
	TaskDefinitionID *uint   `json:"task_definition_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Status           string  `json:"status"`
	AssignedToID     *uint   `json:"assigned_to_id"`
	DueDate          *string `json:"due_date"`
	Priority         string  `json:"priority"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func taskResponse(task *models.ProjectTask) TaskResponse {
	return TaskResponse{
		ID:               task.ID,
		ProjectID:        task.ProjectID,
		TaskDefinitionID: task.TaskDefinitionID,
		Title:            task.Title,
		Description:      task.Description,
		Status:           task.Status,
		AssignedToID:     task.AssignedToID,
		DueDate:          formatDate(task.DueDate),
		Priority:         task.Priority,
		CreatedAt:        task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        task.UpdatedAt.Format(time.RFC3339),
	}
}

// ApplyBaseline instantiates a baseline's task definitions as tasks of the
// project. The operation is idempotent per (project, task definition) pair:
// re-applying skips pairs that already exist and reports how many tasks were
// actually created.
func (h *Handler) ApplyBaseline(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	project, ok := h.loadProject(ctx)
	if !ok {
		return
	}

	baseline, ok := h.loadBaseline(ctx)
	if !ok {
		return
	}

	if d := authz.Authorize(actor, authz.OpUpdate, project.OwnerID); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	var definitions []models.TaskDefinition

	if err := h.DB.Where("baseline_id = ?", baseline.ID).Find(&definitions).Error; err != nil {
		log.Printf("Failed to list task definitions for baseline %d: %v", baseline.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task definitions"})
		return
	}

	if len(definitions) == 0 {
		ctx.JSON(http.StatusOK, gin.H{
			"message": "Baseline has no task definitions to apply.",
			"created": 0,
		})
		return
	}

	created := 0

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		for i := range definitions {
			td := &definitions[i]

			var existing models.ProjectTask

			err := tx.Where("project_id = ? AND task_definition_id = ?", project.ID, td.ID).First(&existing).Error

			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			definitionID := td.ID
			task := models.ProjectTask{
				ProjectID:        project.ID,
				TaskDefinitionID: &definitionID,
				Title:            td.Title,
				Description:      td.Description,
				Status:           "pending",
				Priority:         "Medium",
			}

			if err := tx.Create(&task).Error; err != nil {
				return err
			}

			created++
		}
		return nil
	})

	if err != nil {
		log.Printf("Failed to apply baseline %d to project %d: %v", baseline.ID, project.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply baseline"})
		return
	}

	if created > 0 {
		ctx.JSON(http.StatusCreated, gin.H{
			"message": fmt.Sprintf("%d tasks from baseline '%s' applied to project '%s'.", created, baseline.Name, project.Name),
			"created": created,
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "All tasks from this baseline have already been applied to this project.",
		"created": 0,
	})
}

func (h *Handler) CreateTask(ctx *gin.Context) {
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

	var body CreateTaskRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing task title"})
		return
	}

	status := body.Status
	if status == "" {
		status = "pending"
	}

	priority := body.Priority
	if priority == "" {
		priority = "Medium"
	}

	task := models.ProjectTask{
		ProjectID:   project.ID,
		Title:       body.Title,
		Description: body.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     parseDate(body.DueDate),
	}

	if body.AssignedToID != nil {
		var assignee models.User

		if err := h.DB.First(&assignee, *body.AssignedToID).Error; err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Assignee user with id %d not found", *body.AssignedToID)})
			return
		}

		task.AssignedToID = &assignee.ID
	}

	if err := h.DB.Create(&task).Error; err != nil {
		log.Printf("Failed to create task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	ctx.JSON(http.StatusCreated, taskResponse(&task))
}

func (h *Handler) ListProjectTasks(ctx *gin.Context) {
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

	var tasks []models.ProjectTask

	if err := h.DB.Where("project_id = ?", project.ID).Find(&tasks).Error; err != nil {
		log.Printf("Failed to list tasks for project %d: %v", project.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	response := make([]TaskResponse, 0, len(tasks))

	for i := range tasks {
		response = append(response, taskResponse(&tasks[i]))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *Handler) GetTask(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	task, project, ok := h.loadTask(ctx)
	if !ok {
		return
	}

	if d := authz.Authorize(actor, authz.OpRead, project.OwnerID); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	ctx.JSON(http.StatusOK, taskResponse(task))
}

func (h *Handler) UpdateTask(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	task, project, ok := h.loadTask(ctx)
	if !ok {
		return
	}

	if d := authz.Authorize(actor, authz.OpUpdate, project.OwnerID); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	var body UpdateTaskRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if body.Title != nil {
		task.Title = *body.Title
	}
	if body.Description != nil {
		task.Description = *body.Description
	}
	if body.Status != nil {
		task.Status = *body.Status
	}
	if body.Priority != nil {
		task.Priority = *body.Priority
	}
	if body.DueDate != nil {
		task.DueDate = parseDate(*body.DueDate)
	}

	if body.AssignedToID != nil {
		var assignee models.User

		if err := h.DB.First(&assignee, *body.AssignedToID).Error; err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Assignee user with id %d not found", *body.AssignedToID)})
			return
		}

		task.AssignedToID = &assignee.ID
	} else if body.Unassign {
		task.AssignedToID = nil
	}

	// Save refreshes updated_at regardless of which fields changed.
	if err := h.DB.Save(task).Error; err != nil {
		log.Printf("Failed to update task %d: %v", task.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	ctx.JSON(http.StatusOK, taskResponse(task))
}

// loadTask resolves the task and its parent project, whose owner anchors the
// ownership chain. A task whose project row is missing indicates a failed
// cascade and is reported as a server-side consistency error.
func (h *Handler) loadTask(ctx *gin.Context) (*models.ProjectTask, *models.Project, bool) {
	taskID, err := utils.IDParam(ctx, "task_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}

	var task models.ProjectTask

	if err := h.DB.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			log.Printf("Failed to fetch task %d: %v", taskID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		}
		return nil, nil, false
	}

	var project models.Project

	if err := h.DB.First(&project, task.ProjectID).Error; err != nil {
		log.Printf("CONSISTENCY: task %d references missing project %d: %v", task.ID, task.ProjectID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Associated project not found"})
		return nil, nil, false
	}

	return &task, &project, true
}
