package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/GrowlyX/refactorproject-web/internal/middleware"
	"github.com/GrowlyX/refactorproject-web/internal/services"
	"github.com/GrowlyX/refactorproject-web/pkg/utils"
)

// GitHubHandler serves the App install/link flow: install URLs, the user
// OAuth dance and the pending-installation poll the dashboard uses while it
// waits for the first webhook to land.
type GitHubHandler struct {
	app    *services.GitHubAppService
	store  *services.SyncStore
	sync   *services.SyncService
	tokens *services.TokenManager
	logger utils.Logger
}

func NewGitHubHandler(app *services.GitHubAppService, store *services.SyncStore, sync *services.SyncService, tokens *services.TokenManager) *GitHubHandler {
	return &GitHubHandler{
		app:    app,
		store:  store,
		sync:   sync,
		tokens: tokens,
		logger: utils.GetLogger(),
	}
}

// InstallURL returns where to send the user to install the App. With an
// ?org= parameter the URL targets that organization's settings directly.
func (h *GitHubHandler) InstallURL(c *gin.Context) {
	var url string
	if org := c.Query("org"); org != "" {
		url = h.app.OrgInstallationURL(org)
	} else {
		url = h.app.UserInstallationURL()
	}
	utils.JSONResponse(c, http.StatusOK, gin.H{"url": url})
}

// OAuthStart begins the user OAuth linking flow.
func (h *GitHubHandler) OAuthStart(c *gin.Context) {
	state := uuid.NewString()
	c.SetCookie("oauth_state", state, 600, "/", "", true, true)
	utils.JSONResponse(c, http.StatusOK, gin.H{
		"url": h.app.OAuthURL(state),
	})
}

// OAuthCallback completes the OAuth flow: exchanges the code, links the
// GitHub identity to the authenticated user, stores the token encrypted and
// kicks off a sync so the user's organizations appear immediately.
func (h *GitHubHandler) OAuthCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		utils.Error(c, http.StatusBadRequest, "Missing authorization code", nil)
		return
	}

	state := c.Query("state")
	if cookie, err := c.Cookie("oauth_state"); err != nil || cookie == "" || cookie != state {
		utils.Error(c, http.StatusBadRequest, "Invalid OAuth state", nil)
		return
	}

	ctx := c.Request.Context()

	token, err := h.app.ExchangeOAuthCode(ctx, code)
	if err != nil {
		h.logger.Error("OAuth code exchange failed", err)
		utils.Error(c, http.StatusBadGateway, "Failed to exchange authorization code", nil)
		return
	}

	client := h.app.UserClient(ctx, token.AccessToken)
	ghUser, _, err := client.Users.Get(ctx, "")
	if err != nil {
		h.logger.Error("failed to fetch GitHub user", err)
		utils.Error(c, http.StatusBadGateway, "Failed to fetch GitHub profile", nil)
		return
	}

	authID := middleware.GetAuthID(c)
	user, err := h.store.FindOrCreateUserByAuthID(ctx, authID)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to resolve user", nil)
		return
	}

	if err := h.store.LinkUserGithubIdentity(ctx, user.ID, ghUser.GetID(), ghUser.GetLogin(), ghUser.Email); err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to link GitHub identity", nil)
		return
	}

	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		expiresAt = &token.Expiry
	}
	if err := h.tokens.StoreToken(ctx, user.ID, services.ProviderGitHub, token.AccessToken, "read:org read:user repo", expiresAt); err != nil {
		h.logger.Error("failed to store OAuth token", err, utils.LogFields{
			"user_id": user.ID,
		})
	}

	result := h.sync.SyncAllInstallationsForUser(ctx, authID)

	utils.Success(c, http.StatusOK, "GitHub account linked", gin.H{
		"github_username": ghUser.GetLogin(),
		"sync":            result,
	})
}

// TokenStatus reports whether the caller has a linked GitHub token. The
// token itself never leaves the server.
func (h *GitHubHandler) TokenStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		utils.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	_, err := h.tokens.GetDecryptedToken(c.Request.Context(), userID, services.ProviderGitHub)
	if err != nil {
		utils.JSONResponse(c, http.StatusOK, gin.H{"linked": false})
		return
	}
	utils.JSONResponse(c, http.StatusOK, gin.H{"linked": true})
}

// UnlinkToken removes the caller's stored GitHub token.
func (h *GitHubHandler) UnlinkToken(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		utils.Error(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	if err := h.tokens.DeleteToken(c.Request.Context(), userID, services.ProviderGitHub); err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to remove token", nil)
		return
	}
	utils.Success(c, http.StatusOK, "GitHub token removed", nil)
}

// PendingInstallations is the dashboard's poll target after it sends a user
// off to install the App. ?since= bounds how far back to look.
func (h *GitHubHandler) PendingInstallations(c *gin.Context) {
	since := time.Now().Add(-15 * time.Minute)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.Error(c, http.StatusBadRequest, "Invalid since timestamp", nil)
			return
		}
		since = parsed
	}

	pending, err := h.store.ListPendingInstallations(c.Request.Context(), since)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to load pending installations", nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, ListResponse{
		Data:  pending,
		Total: len(pending),
	})
}
