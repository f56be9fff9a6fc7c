package models

import "gorm.io/gorm"

// TaskDefinition is a task template. It has no owner of its own; mutation
// rights are delegated to the parent baseline's creator.
type TaskDefinition struct {
	gorm.Model

	Title       string `gorm:"not null"`
	Description string
	Category    string
	BaselineID  uint `gorm:"not null;index"`

	// Relationships
	Baseline Baseline `gorm:"foreignKey:BaselineID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
