package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GrowlyX/refactorproject-web/internal/middleware"
	"github.com/GrowlyX/refactorproject-web/internal/services"
	"github.com/GrowlyX/refactorproject-web/pkg/utils"
)

// SyncHandler exposes manual reconciliation triggers and the audit trail.
type SyncHandler struct {
	sync            *services.SyncService
	scheduler       *services.SyncScheduler
	intervalMinutes int
}

func NewSyncHandler(sync *services.SyncService, scheduler *services.SyncScheduler, intervalMinutes int) *SyncHandler {
	return &SyncHandler{
		sync:            sync,
		scheduler:       scheduler,
		intervalMinutes: intervalMinutes,
	}
}

// SyncInstallation triggers reconciliation of one installation. The
// authenticated caller is attached to the organization it resolves to.
func (h *SyncHandler) SyncInstallation(c *gin.Context) {
	installationID, err := strconv.ParseInt(c.Param("installationId"), 10, 64)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid installation ID", nil)
		return
	}

	var authID *string
	if id := middleware.GetAuthID(c); id != "" {
		authID = &id
	}

	result := h.sync.SyncInstallation(c.Request.Context(), installationID, authID)
	if !result.Success {
		utils.JSONResponse(c, http.StatusBadGateway, result)
		return
	}
	utils.JSONResponse(c, http.StatusOK, result)
}

// SyncAll reconciles every installation, attaching the caller to each
// organization they belong to.
func (h *SyncHandler) SyncAll(c *gin.Context) {
	var result *services.SyncResult
	if authID := middleware.GetAuthID(c); authID != "" {
		result = h.sync.SyncAllInstallationsForUser(c.Request.Context(), authID)
	} else {
		result = h.sync.SyncAllInstallations(c.Request.Context())
	}

	if !result.Success {
		utils.JSONResponse(c, http.StatusBadGateway, result)
		return
	}
	utils.JSONResponse(c, http.StatusOK, result)
}

// SyncOrganization reconciles one stored organization on demand.
func (h *SyncHandler) SyncOrganization(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	result, err := h.sync.SyncOrganization(c.Request.Context(), orgID)
	if err != nil {
		utils.Error(c, http.StatusNotFound, "Organization not found", nil)
		return
	}
	if !result.Success {
		utils.JSONResponse(c, http.StatusBadGateway, result)
		return
	}
	utils.JSONResponse(c, http.StatusOK, result)
}

// SyncOrganizationMembers refreshes only the member mirror.
func (h *SyncHandler) SyncOrganizationMembers(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	result, err := h.sync.SyncOrganizationMembers(c.Request.Context(), orgID)
	if err != nil {
		utils.Error(c, http.StatusNotFound, "Organization not found", nil)
		return
	}
	if !result.Success {
		utils.JSONResponse(c, http.StatusBadGateway, result)
		return
	}
	utils.JSONResponse(c, http.StatusOK, result)
}

// InstallationToken mints a short-lived installation access token for an
// organization, for jobs that clone its repositories directly.
func (h *SyncHandler) InstallationToken(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	token, err := h.sync.MintInstallationToken(c.Request.Context(), orgID)
	if err != nil {
		utils.Error(c, http.StatusNotFound, "No installation found for organization", nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{
		"token":      token.Token,
		"expires_at": token.ExpiresAt,
	})
}

// Uninstall removes the App from an organization and deactivates it locally.
func (h *SyncHandler) Uninstall(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	if err := h.sync.UninstallOrganization(c.Request.Context(), orgID); err != nil {
		utils.Error(c, http.StatusBadGateway, "Failed to uninstall organization", nil)
		return
	}

	utils.Success(c, http.StatusOK, "Organization uninstalled", gin.H{"uninstalled": true})
}

// SyncLogs returns recent audit rows for an organization.
func (h *SyncHandler) SyncLogs(c *gin.Context) {
	orgID, ok := parseOrgID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.sync.GetSyncLogs(c.Request.Context(), orgID, limit)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to load sync logs", nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, ListResponse{
		Data:  logs,
		Total: len(logs),
	})
}

// SchedulerStatus reports the background sweep state.
func (h *SyncHandler) SchedulerStatus(c *gin.Context) {
	utils.JSONResponse(c, http.StatusOK, h.scheduler.Status())
}

// SchedulerStart launches the background sweep. Already-running is fine.
func (h *SyncHandler) SchedulerStart(c *gin.Context) {
	interval := h.intervalMinutes
	if raw := c.Query("interval_minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			utils.Error(c, http.StatusBadRequest, "Invalid interval_minutes", nil)
			return
		}
		interval = parsed
	}

	h.scheduler.Start(interval)
	utils.JSONResponse(c, http.StatusOK, h.scheduler.Status())
}

// SchedulerStop halts the background sweep.
func (h *SyncHandler) SchedulerStop(c *gin.Context) {
	h.scheduler.Stop()
	utils.JSONResponse(c, http.StatusOK, h.scheduler.Status())
}

func parseOrgID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid organization ID", nil)
		return 0, false
	}
	return uint(id), true
}
