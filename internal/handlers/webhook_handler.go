package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v68/github"

	"github.com/GrowlyX/refactorproject-web/internal/services"
	"github.com/GrowlyX/refactorproject-web/pkg/utils"
)

// WebhookHandler receives GitHub App webhook deliveries. Signature
// validation happens before anything else touches the payload; once a
// delivery is authenticated it is always acknowledged with 200, even when
// processing stumbles, so GitHub does not retry work we have already seen.
type WebhookHandler struct {
	installations *services.InstallationService
	secret        []byte
	logger        utils.Logger
}

func NewWebhookHandler(installations *services.InstallationService, webhookSecret []byte) *WebhookHandler {
	return &WebhookHandler{
		installations: installations,
		secret:        webhookSecret,
		logger:        utils.GetLogger(),
	}
}

// Handle processes POST /api/webhooks/github.
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := github.ValidatePayload(c.Request, h.secret)
	if err != nil {
		h.logger.Warn("webhook signature validation failed", utils.LogFields{
			"ip": c.ClientIP(),
		})
		utils.Error(c, http.StatusUnauthorized, "Invalid signature", nil)
		return
	}

	eventType := github.WebHookType(c.Request)
	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		h.logger.Warn("unparseable webhook payload", utils.LogFields{
			"event": eventType,
		})
		utils.Success(c, http.StatusOK, "Event ignored", nil)
		return
	}

	switch e := event.(type) {
	case *github.InstallationEvent:
		h.handleInstallation(c, e)
	case *github.InstallationRepositoriesEvent:
		h.handleInstallationRepositories(c, e)
	default:
		h.logger.Info("ignoring webhook event", utils.LogFields{
			"event": eventType,
		})
		utils.Success(c, http.StatusOK, "Event ignored", nil)
	}
}

func (h *WebhookHandler) handleInstallation(c *gin.Context, e *github.InstallationEvent) {
	event := services.InstallationEvent{
		Action:         e.GetAction(),
		InstallationID: e.GetInstallation().GetID(),
	}
	if account := e.GetInstallation().GetAccount(); account != nil {
		event.Account = services.InstallationAccount{
			ID:    account.GetID(),
			Login: account.GetLogin(),
			Type:  account.GetType(),
		}
	}

	err := h.installations.HandleInstallationEvent(c.Request.Context(), event)
	if err != nil {
		if errors.Is(err, services.ErrUnknownAction) {
			h.logger.Warn("unrecognized installation action", utils.LogFields{
				"action": event.Action,
			})
		} else {
			h.logger.Error("installation event processing failed", err, utils.LogFields{
				"action": event.Action,
			})
		}
	}

	utils.Success(c, http.StatusOK, "Event processed", nil)
}

func (h *WebhookHandler) handleInstallationRepositories(c *gin.Context, e *github.InstallationRepositoriesEvent) {
	h.installations.HandleRepositoriesEvent(
		c.Request.Context(),
		e.GetAction(),
		e.GetInstallation().GetID(),
		len(e.RepositoriesAdded),
		len(e.RepositoriesRemoved),
	)
	utils.Success(c, http.StatusOK, "Event processed", nil)
}
