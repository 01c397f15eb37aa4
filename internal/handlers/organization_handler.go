package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GrowlyX/refactorproject-web/internal/middleware"
	"github.com/GrowlyX/refactorproject-web/internal/services"
	"github.com/GrowlyX/refactorproject-web/pkg/utils"
)

// OrganizationHandler serves the dashboard's read side: the caller's
// organizations and each organization's synced projects.
type OrganizationHandler struct {
	store *services.SyncStore
}

func NewOrganizationHandler(store *services.SyncStore) *OrganizationHandler {
	return &OrganizationHandler{store: store}
}

// List returns the organizations the authenticated user belongs to.
func (h *OrganizationHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		utils.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	orgs, err := h.store.ListOrganizationsForUser(c.Request.Context(), userID)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to load organizations", nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, ListResponse{
		Data:  orgs,
		Total: len(orgs),
	})
}

// Get returns one organization, restricted to its members.
func (h *OrganizationHandler) Get(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	if !h.requireMembership(c, orgID) {
		return
	}

	org, err := h.store.GetOrganization(c.Request.Context(), orgID)
	if err != nil {
		utils.NotFound(c, "Organization")
		return
	}

	utils.JSONResponse(c, http.StatusOK, org)
}

// Projects lists an organization's synced repositories.
func (h *OrganizationHandler) Projects(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	if !h.requireMembership(c, orgID) {
		return
	}

	projects, err := h.store.ListProjects(c.Request.Context(), orgID)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to load projects", nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, ListResponse{
		Data:  projects,
		Total: len(projects),
	})
}

// CheckByName reports whether an organization is known and has the App
// installed. The dashboard uses it to decide between "open" and "install".
func (h *OrganizationHandler) CheckByName(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		utils.Error(c, http.StatusBadRequest, "name query parameter is required", nil)
		return
	}

	org, err := h.store.FindOrganizationByName(c.Request.Context(), name)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to look up organization", nil)
		return
	}

	if org == nil {
		utils.JSONResponse(c, http.StatusOK, gin.H{
			"exists":    false,
			"installed": false,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{
		"exists":    true,
		"installed": org.GithubAppInstalled,
		"status":    org.Status,
	})
}

func (h *OrganizationHandler) requireMembership(c *gin.Context, orgID uint) bool {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		utils.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return false
	}

	membership, err := h.store.FindMembership(c.Request.Context(), orgID, userID)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to check membership", nil)
		return false
	}
	if membership == nil {
		utils.Error(c, http.StatusForbidden, "Not a member of this organization", nil)
		return false
	}
	return true
}
