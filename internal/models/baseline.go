package models

import "gorm.io/gorm"

// Baseline is a reusable named template collection of task definitions that
// can be applied to a project to instantiate its tasks.
type Baseline struct {
	gorm.Model

	Name        string `gorm:"uniqueIndex;not null"`
	Description string
	CreatedByID uint `gorm:"not null;index"`

	// Relationships
	Creator         User             `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	TaskDefinitions []TaskDefinition `gorm:"foreignKey:BaselineID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
