package models

import (
	"time"

	"gorm.io/gorm"
)

type Evidence struct {
	gorm.Model

	ProjectTaskID uint `gorm:"not null;index"`
	UploadedByID  uint `gorm:"not null;index"`

	FileName    string `gorm:"not null"`        // sanitized original name, used as the suggested download name
	StoragePath string `gorm:"size:1024"`       // opaque handle into the blob store, relative to the upload root
	ToolType    string `gorm:"size:128"`        // "Nessus", "Burp", "Nuclei", "Manual", "Screenshot", ...
	Notes       string
	UploadDate  time.Time `gorm:"not null"`
	MimeType    string    `gorm:"size:128"`
	Verified    bool      `gorm:"default:false"`

	// Relationships
	Task     ProjectTask `gorm:"foreignKey:ProjectTaskID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	Uploader User        `gorm:"foreignKey:UploadedByID"`
}
