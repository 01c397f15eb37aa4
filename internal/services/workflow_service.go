package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/GrowlyX/refactorproject-web/internal/database"
	"github.com/GrowlyX/refactorproject-web/internal/models"
	"github.com/GrowlyX/refactorproject-web/pkg/utils"
)

var (
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrProjectNotFound   = errors.New("project not found")
	ErrInvalidTransition = errors.New("invalid workflow state transition")
)

// WorkflowService manages refactor jobs attached to synced projects.
type WorkflowService struct {
	db     database.Database
	logger utils.Logger
}

func NewWorkflowService(db database.Database) *WorkflowService {
	return &WorkflowService{
		db:     db,
		logger: utils.GetLogger(),
	}
}

// CreateWorkflow schedules a new job against a project.
func (s *WorkflowService) CreateWorkflow(ctx context.Context, projectID uint) (*models.Workflow, error) {
	var project models.Project
	err := s.db.DB().WithContext(ctx).Where("id = ?", projectID).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	workflow := models.Workflow{
		ProjectID: projectID,
		State:     models.WorkflowStateScheduling,
	}
	if err := s.db.DB().WithContext(ctx).Create(&workflow).Error; err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	s.logger.Info("workflow scheduled", utils.LogFields{
		"workflow_id": workflow.ID,
		"project_id":  projectID,
	})
	return &workflow, nil
}

func (s *WorkflowService) GetWorkflow(ctx context.Context, workflowID uint) (*models.Workflow, error) {
	var workflow models.Workflow
	err := s.db.DB().WithContext(ctx).
		Preload("Project").
		Where("id = ?", workflowID).
		First(&workflow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, err
	}
	return &workflow, nil
}

func (s *WorkflowService) ListWorkflows(ctx context.Context, projectID uint) ([]models.Workflow, error) {
	var workflows []models.Workflow
	err := s.db.DB().WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&workflows).Error
	return workflows, err
}

// TransitionWorkflow advances a job's state, enforcing forward-only moves.
// Results, when given, replace the stored payload.
func (s *WorkflowService) TransitionWorkflow(ctx context.Context, workflowID uint, next models.WorkflowState, results models.JSON) (*models.Workflow, error) {
	var workflow models.Workflow
	err := s.db.DB().WithContext(ctx).Where("id = ?", workflowID).First(&workflow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, err
	}

	if !workflow.ValidTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, workflow.State, next)
	}

	workflow.State = next
	if results != nil {
		workflow.Results = results
	}
	if err := s.db.DB().WithContext(ctx).Save(&workflow).Error; err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	s.logger.Info("workflow state changed", utils.LogFields{
		"workflow_id": workflow.ID,
		"state":       next,
	})
	return &workflow, nil
}
