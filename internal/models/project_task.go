package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectTask struct {
	gorm.Model

	// The composite unique index backs idempotent baseline application at the
	// database level; NULL definition ids (ad-hoc tasks) never collide.
	ProjectID        uint  `gorm:"not null;index;uniqueIndex:idx_project_task_definition"`
	TaskDefinitionID *uint `gorm:"uniqueIndex:idx_project_task_definition"` // nil for ad-hoc tasks

	Title               string `gorm:"not null"`
	Description         string
	Status              string `gorm:"not null;default:pending"` // "pending", "in_progress", "review", "completed", "on_hold", "cancelled"
	AssignedToID        *uint  `gorm:"index"`
	DueDate             *datatypes.Date
	Priority            string `gorm:"default:Medium"`
	DueDateReminderSent bool   `gorm:"default:false"`

	// Relationships
	Project        Project         `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	TaskDefinition *TaskDefinition `gorm:"foreignKey:TaskDefinitionID"`
	Assignee       *User           `gorm:"foreignKey:AssignedToID"`
	Evidences      []Evidence      `gorm:"foreignKey:ProjectTaskID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
