package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Project struct {
	gorm.Model

	Name        string `gorm:"not null"`
	Description string
	Status      string `gorm:"not null;default:active"` // "active", "planning", "completed", ...
	StartDate   *datatypes.Date
	EndDate     *datatypes.Date
	OwnerID     uint   `gorm:"not null;index"`
	Priority    string `gorm:"default:Medium"`
	ProjectType string

	// Relationships
	Owner User          `gorm:"foreignKey:OwnerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Tasks []ProjectTask `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
