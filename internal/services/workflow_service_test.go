package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrowlyX/refactorproject-web/internal/models"
)

func seedProject(t *testing.T, svc *WorkflowService) *models.Project {
	t.Helper()

	org := &models.Organization{GithubID: 1001, Name: "acme", Status: models.OrganizationStatusActive}
	require.NoError(t, svc.db.DB().Create(org).Error)

	project := &models.Project{
		OrganizationID:     org.ID,
		GithubRepositoryID: 1,
		RepositoryName:     "api",
	}
	require.NoError(t, svc.db.DB().Create(project).Error)
	return project
}

func TestWorkflowLifecycle(t *testing.T) {
	svc := NewWorkflowService(newTestDB(t))
	ctx := context.Background()
	project := seedProject(t, svc)

	workflow, err := svc.CreateWorkflow(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStateScheduling, workflow.State)

	workflow, err = svc.TransitionWorkflow(ctx, workflow.ID, models.WorkflowStateInProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStateInProgress, workflow.State)

	results := models.JSON{"modules_extracted": 3}
	workflow, err = svc.TransitionWorkflow(ctx, workflow.ID, models.WorkflowStateComplete, results)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStateComplete, workflow.State)
	assert.NotNil(t, workflow.Results)
}

func TestWorkflowCannotMoveBackwards(t *testing.T) {
	svc := NewWorkflowService(newTestDB(t))
	ctx := context.Background()
	project := seedProject(t, svc)

	workflow, err := svc.CreateWorkflow(ctx, project.ID)
	require.NoError(t, err)

	workflow, err = svc.TransitionWorkflow(ctx, workflow.ID, models.WorkflowStateComplete, nil)
	require.NoError(t, err)

	_, err = svc.TransitionWorkflow(ctx, workflow.ID, models.WorkflowStateInProgress, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCreateWorkflowForMissingProject(t *testing.T) {
	svc := NewWorkflowService(newTestDB(t))

	_, err := svc.CreateWorkflow(context.Background(), 9999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}
