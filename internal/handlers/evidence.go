package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/attestor-dev/attestor/internal/authz"
	"github.com/attestor-dev/attestor/internal/models"
	"github.com/attestor-dev/attestor/internal/storage"
	"github.com/attestor-dev/attestor/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UpdateEvidenceRequest struct {
	ToolType *string `json:"tool_type"`
	Notes    *string `json:"notes"`
	Verified *bool   `json:"verified"`
}

type EvidenceResponse struct {
	ID            uint   `json:"id"`
	ProjectTaskID uint   `json:"project_task_id"`
	UploadedByID  uint   `json:"uploaded_by_id"`
	FileName      string `json:"file_name"`
	ToolType      string `json:"tool_type"`
	Notes         string `json:"notes"`
	UploadDate    string `json:"upload_date"`
	MimeType      string `json:"mime_type"`
	Verified      bool   `json:"verified"`
}

func evidenceResponse(e *models.Evidence) EvidenceResponse {
	return EvidenceResponse{
		ID:            e.ID,
		ProjectTaskID: e.ProjectTaskID,
		UploadedByID:  e.UploadedByID,
		FileName:      e.FileName,
		ToolType:      e.ToolType,
		Notes:         e.Notes,
		UploadDate:    e.UploadDate.Format(time.RFC3339),
		MimeType:      e.MimeType,
		Verified:      e.Verified,
	}
}

// UploadEvidence attaches a file to a task. Authorization runs before the
// type and size policy checks, so an unauthorized caller learns nothing
// about them. The blob is written first; if it cannot be stored, no metadata
// row is created.
func (h *Handler) UploadEvidence(ctx *gin.Context) {
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

	file, header, err := ctx.Request.FormFile("file")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing evidence file"})
		return
	}
	defer file.Close()

	if !h.Cfg.ExtensionAllowed(header.Filename) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("File type not allowed. Allowed extensions: %s", strings.Join(h.Cfg.AllowedExtensions, ", ")),
		})
		return
	}

	if header.Size > h.Cfg.MaxUploadBytes {
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("File exceeds the maximum upload size of %d bytes", h.Cfg.MaxUploadBytes),
		})
		return
	}

	subfolder := fmt.Sprintf("task_%d", task.ID)
	handle, err := h.Store.Save(file, header.Filename, subfolder, "evidence")

	if err != nil {
		log.Printf("Failed to store evidence file for task %d: %v", task.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	fileName := storage.SanitizeFilename(header.Filename)
	if fileName == "" {
		fileName = "untitled"
	}

	evidence := models.Evidence{
		ProjectTaskID: task.ID,
		UploadedByID:  actor.ID,
		FileName:      fileName,
		StoragePath:   handle,
		ToolType:      ctx.PostForm("tool_type"),
		Notes:         ctx.PostForm("notes"),
		UploadDate:    time.Now().UTC(),
		MimeType:      header.Header.Get("Content-Type"),
	}

	if err := h.DB.Create(&evidence).Error; err != nil {
		// Do not leave a blob no row references.
		h.Store.Delete(handle)
		log.Printf("Failed to create evidence record: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create evidence record"})
		return
	}

	ctx.JSON(http.StatusCreated, evidenceResponse(&evidence))
}

func (h *Handler) ListTaskEvidence(ctx *gin.Context) {
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

	var evidences []models.Evidence

	if err := h.DB.Where("project_task_id = ?", task.ID).Find(&evidences).Error; err != nil {
		log.Printf("Failed to list evidence for task %d: %v", task.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve evidence"})
		return
	}

	response := make([]EvidenceResponse, 0, len(evidences))

	for i := range evidences {
		response = append(response, evidenceResponse(&evidences[i]))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *Handler) GetEvidence(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	evidence, _, project, ok := h.loadEvidence(ctx)
	if !ok {
		return
	}

	if d := authz.Authorize(actor, authz.OpRead, project.OwnerID); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	ctx.JSON(http.StatusOK, evidenceResponse(evidence))
}

func (h *Handler) UpdateEvidence(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	evidence, _, project, ok := h.loadEvidence(ctx)
	if !ok {
		return
	}

	if d := authz.Authorize(actor, authz.OpUpdate, project.OwnerID); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	var body UpdateEvidenceRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if body.ToolType != nil {
		evidence.ToolType = *body.ToolType
	}
	if body.Notes != nil {
		evidence.Notes = *body.Notes
	}
	if body.Verified != nil {
		evidence.Verified = *body.Verified
	}

	if err := h.DB.Save(evidence).Error; err != nil {
		log.Printf("Failed to update evidence %d: %v", evidence.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update evidence"})
		return
	}

	ctx.JSON(http.StatusOK, evidenceResponse(evidence))
}

// DownloadEvidence streams the stored bytes back under the original
// sanitized filename. A metadata row whose blob has gone missing is a
// distinct condition from a missing evidence record.
func (h *Handler) DownloadEvidence(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	evidence, _, project, ok := h.loadEvidence(ctx)
	if !ok {
		return
	}

	if d := authz.Authorize(actor, authz.OpRead, project.OwnerID); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	if evidence.StoragePath == "" {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "File not found on server"})
		return
	}

	rc, err := h.Store.Open(evidence.StoragePath)

	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Printf("Evidence %d references missing blob %s", evidence.ID, evidence.StoragePath)
			ctx.JSON(http.StatusNotFound, gin.H{"error": "File not found on server"})
			return
		}
		log.Printf("Failed to open evidence blob %s: %v", evidence.StoragePath, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	defer rc.Close()

	mimeType := evidence.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", evidence.FileName))
	ctx.Header("Content-Type", mimeType)
	ctx.Status(http.StatusOK)

	if _, err := io.Copy(ctx.Writer, rc); err != nil {
		log.Printf("Failed to stream evidence %d: %v", evidence.ID, err)
	}
}

// DeleteEvidence removes the blob best-effort and the metadata row always.
// An orphaned physical file is acceptable; a metadata row stuck behind a
// flaky filesystem is not.
func (h *Handler) DeleteEvidence(ctx *gin.Context) {
	actor, err := utils.GetActor(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	evidence, _, project, ok := h.loadEvidence(ctx)
	if !ok {
		return
	}

	if d := authz.Authorize(actor, authz.OpDelete, project.OwnerID); !d.Allowed {
		ctx.JSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return
	}

	if evidence.StoragePath != "" && !h.Store.Delete(evidence.StoragePath) {
		log.Printf("Failed to delete blob %s for evidence %d, removing record anyway", evidence.StoragePath, evidence.ID)
	}

	if err := h.DB.Unscoped().Delete(evidence).Error; err != nil {
		log.Printf("Failed to delete evidence %d: %v", evidence.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete evidence"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Evidence deleted successfully"})
}

// loadEvidence walks the full ownership chain Evidence -> task -> project.
// Missing ancestors mean a cascade failed; those are logged loudly and
// surfaced as server errors, not 404s.
func (h *Handler) loadEvidence(ctx *gin.Context) (*models.Evidence, *models.ProjectTask, *models.Project, bool) {
	evidenceID, err := utils.IDParam(ctx, "evidence_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, nil, false
	}

	var evidence models.Evidence

	if err := h.DB.First(&evidence, evidenceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Evidence not found"})
		} else {
			log.Printf("Failed to fetch evidence %d: %v", evidenceID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve evidence"})
		}
		return nil, nil, nil, false
	}

	var task models.ProjectTask

	if err := h.DB.First(&task, evidence.ProjectTaskID).Error; err != nil {
		log.Printf("CONSISTENCY: evidence %d references missing task %d: %v", evidence.ID, evidence.ProjectTaskID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Associated task not found"})
		return nil, nil, nil, false
	}

	var project models.Project

	if err := h.DB.First(&project, task.ProjectID).Error; err != nil {
		log.Printf("CONSISTENCY: task %d references missing project %d: %v", task.ID, task.ProjectID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Associated project not found"})
		return nil, nil, nil, false
	}

	return &evidence, &task, &project, true
}
