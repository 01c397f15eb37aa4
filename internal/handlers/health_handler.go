package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GrowlyX/refactorproject-web/internal/database"
	"github.com/GrowlyX/refactorproject-web/internal/services"
	"github.com/GrowlyX/refactorproject-web/pkg/utils"
)

var startTime = time.Now()

type HealthHandler struct {
	db        database.Database
	scheduler *services.SyncScheduler
	env       string
}

type HealthStatus struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Environment string                 `json:"environment"`
	Services    map[string]interface{} `json:"services"`
	Uptime      string                 `json:"uptime"`
}

func NewHealthHandler(db database.Database, scheduler *services.SyncScheduler, env string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		scheduler: scheduler,
		env:       env,
	}
}

// Health reports overall service health including the sync scheduler state.
func (h *HealthHandler) Health(c *gin.Context) {
	svcs := make(map[string]interface{})
	svcs["database"] = h.checkDatabase()
	if h.scheduler != nil {
		svcs["scheduler"] = h.scheduler.Status()
	}

	status := "healthy"
	if svcs["database"] != "healthy" {
		status = "degraded"
	}

	statusCode := http.StatusOK
	if status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	utils.JSONResponse(c, statusCode, HealthStatus{
		Status:      status,
		Timestamp:   time.Now().UTC(),
		Environment: h.env,
		Services:    svcs,
		Uptime:      time.Since(startTime).String(),
	})
}

// Readiness reports whether the service can take traffic.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ready := h.checkDatabase() == "healthy"

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	utils.JSONResponse(c, statusCode, gin.H{
		"ready": ready,
	})
}

// Liveness is a trivial aliveness probe.
func (h *HealthHandler) Liveness(c *gin.Context) {
	utils.JSONResponse(c, http.StatusOK, gin.H{"alive": true})
}

func (h *HealthHandler) checkDatabase() string {
	sqlDB, err := h.db.DB().DB()
	if err != nil {
		return "unhealthy"
	}
	if err := sqlDB.Ping(); err != nil {
		return "unhealthy"
	}
	return "healthy"
}
