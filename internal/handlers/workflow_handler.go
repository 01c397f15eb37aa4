package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GrowlyX/refactorproject-web/internal/models"
	"github.com/GrowlyX/refactorproject-web/internal/services"
	"github.com/GrowlyX/refactorproject-web/pkg/utils"
)

// WorkflowHandler manages refactor jobs on synced projects.
type WorkflowHandler struct {
	workflows *services.WorkflowService
}

func NewWorkflowHandler(workflows *services.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows}
}

type createWorkflowRequest struct {
	ProjectID uint `json:"project_id" binding:"required"`
}

type transitionWorkflowRequest struct {
	State   models.WorkflowState `json:"state" binding:"required"`
	Results models.JSON          `json:"results"`
}

// Create schedules a new workflow against a project.
func (h *WorkflowHandler) Create(c *gin.Context) {
	var req createWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	workflow, err := h.workflows.CreateWorkflow(c.Request.Context(), req.ProjectID)
	if err != nil {
		if errors.Is(err, services.ErrProjectNotFound) {
			utils.NotFound(c, "Project")
			return
		}
		utils.Error(c, http.StatusInternalServerError, "Failed to create workflow", nil)
		return
	}

	utils.JSONResponse(c, http.StatusCreated, workflow)
}

// Get returns one workflow with its project.
func (h *WorkflowHandler) Get(c *gin.Context) {
	workflowID, ok := parseWorkflowID(c)
	if !ok {
		return
	}

	workflow, err := h.workflows.GetWorkflow(c.Request.Context(), workflowID)
	if err != nil {
		if errors.Is(err, services.ErrWorkflowNotFound) {
			utils.NotFound(c, "Workflow")
			return
		}
		utils.Error(c, http.StatusInternalServerError, "Failed to load workflow", nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, workflow)
}

// List returns a project's workflows, newest first.
func (h *WorkflowHandler) List(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Query("project_id"), 10, 32)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "project_id query parameter is required", nil)
		return
	}

	workflows, err := h.workflows.ListWorkflows(c.Request.Context(), uint(projectID))
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to load workflows", nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, ListResponse{
		Data:  workflows,
		Total: len(workflows),
	})
}

// Transition advances a workflow's state.
func (h *WorkflowHandler) Transition(c *gin.Context) {
	workflowID, ok := parseWorkflowID(c)
	if !ok {
		return
	}

	var req transitionWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	workflow, err := h.workflows.TransitionWorkflow(c.Request.Context(), workflowID, req.State, req.Results)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWorkflowNotFound):
			utils.NotFound(c, "Workflow")
		case errors.Is(err, services.ErrInvalidTransition):
			utils.Error(c, http.StatusConflict, "Invalid state transition", err.Error())
		default:
			utils.Error(c, http.StatusInternalServerError, "Failed to update workflow", nil)
		}
		return
	}

	utils.JSONResponse(c, http.StatusOK, workflow)
}

func parseWorkflowID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid workflow ID", nil)
		return 0, false
	}
	return uint(id), true
}
