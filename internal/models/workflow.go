package models

import (
	"time"
)

type WorkflowState string

const (
	WorkflowStateScheduling WorkflowState = "scheduling"
	WorkflowStateInProgress WorkflowState = "in_progress"
	WorkflowStateComplete   WorkflowState = "complete"
)

// Workflow is an asynchronous refactor job attached to a project. Results is
// an opaque payload written by the job runner.
type Workflow struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	ProjectID uint          `gorm:"not null;index" json:"project_id"`
	State     WorkflowState `gorm:"type:varchar(20);default:scheduling" json:"state"`
	Results   JSON          `gorm:"type:jsonb" json:"results"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

func (w *Workflow) TableName() string {
	return "workflows"
}

// ValidTransition reports whether a workflow may move from its current state
// to next. Workflows only move forward.
func (w *Workflow) ValidTransition(next WorkflowState) bool {
	switch w.State {
	case WorkflowStateScheduling:
		return next == WorkflowStateInProgress || next == WorkflowStateComplete
	case WorkflowStateInProgress:
		return next == WorkflowStateComplete
	default:
		return false
	}
}
