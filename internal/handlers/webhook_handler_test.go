package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GrowlyX/refactorproject-web/internal/config"
	"github.com/GrowlyX/refactorproject-web/internal/database"
	"github.com/GrowlyX/refactorproject-web/internal/mocks"
	"github.com/GrowlyX/refactorproject-web/internal/models"
	"github.com/GrowlyX/refactorproject-web/internal/services"
)

const webhookSecret = "test-webhook-secret"

type WebhookHandlerTestSuite struct {
	suite.Suite
	db     database.Database
	store  *services.SyncStore
	app    *mocks.MockAppClient
	lister *mocks.MockInstallationLister
	router *gin.Engine
}

func (s *WebhookHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	s.Require().NoError(db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.OrganizationMember{},
		&models.Project{},
		&models.SyncLog{},
		&models.PendingInstallation{},
	))

	s.db = database.NewGormAdapter(db)
	s.store = services.NewSyncStore(s.db)
	s.app = new(mocks.MockAppClient)
	s.lister = new(mocks.MockInstallationLister)

	syncService := services.NewSyncService(s.store, s.app, s.lister, config.SyncConfig{})
	installationService := services.NewInstallationService(s.store, syncService)
	handler := NewWebhookHandler(installationService, []byte(webhookSecret))

	s.router = gin.New()
	s.router.POST("/api/webhooks/github", handler.Handle)
}

func (s *WebhookHandlerTestSuite) deliver(event string, payload []byte, sign bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/github", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)

	if sign {
		mac := hmac.New(sha256.New, []byte(webhookSecret))
		mac.Write(payload)
		req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	} else {
		req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func installationPayload(action string) []byte {
	return []byte(`{
		"action": "` + action + `",
		"installation": {
			"id": 42,
			"account": {
				"id": 1001,
				"login": "acme",
				"type": "Organization"
			}
		}
	}`)
}

func (s *WebhookHandlerTestSuite) TestRejectsBadSignatureBeforeAnyMutation() {
	w := s.deliver("installation", installationPayload("created"), false)

	s.Equal(http.StatusUnauthorized, w.Code)

	var pendingCount, orgCount int64
	s.db.DB().Model(&models.PendingInstallation{}).Count(&pendingCount)
	s.db.DB().Model(&models.Organization{}).Count(&orgCount)
	s.EqualValues(0, pendingCount)
	s.EqualValues(0, orgCount)
	s.app.AssertNotCalled(s.T(), "GetInstallation", mock.Anything, mock.Anything)
}

func (s *WebhookHandlerTestSuite) TestInstallationCreated() {
	s.app.On("GetInstallation", mock.Anything, int64(42)).Return(&services.Installation{
		ID: 42,
		Account: services.InstallationAccount{
			ID:    1001,
			Login: "acme",
			Type:  "Organization",
		},
	}, nil)
	s.lister.On("ListInstallationRepositories", mock.Anything, int64(42)).Return([]services.Repository{}, nil)
	s.lister.On("ListOrganizationMembers", mock.Anything, int64(42), "acme").Return([]services.Member{}, nil)

	w := s.deliver("installation", installationPayload("created"), true)

	s.Equal(http.StatusOK, w.Code)

	var pending models.PendingInstallation
	s.Require().NoError(s.db.DB().First(&pending).Error)
	s.Equal(int64(1001), pending.GithubOrgID)

	org, err := s.store.FindOrganizationByGithubID(context.Background(), 1001)
	s.Require().NoError(err)
	s.Require().NotNil(org)
}

func (s *WebhookHandlerTestSuite) TestInstallationDeleted() {
	org := &models.Organization{
		GithubID:           1001,
		Name:               "acme",
		Status:             models.OrganizationStatusActive,
		GithubAppInstalled: true,
	}
	s.Require().NoError(s.db.DB().Create(org).Error)

	w := s.deliver("installation", installationPayload("deleted"), true)

	s.Equal(http.StatusOK, w.Code)

	var updated models.Organization
	require.NoError(s.T(), s.db.DB().First(&updated, org.ID).Error)
	s.False(updated.GithubAppInstalled)
	s.Equal(models.OrganizationStatusInactive, updated.Status)
}

func (s *WebhookHandlerTestSuite) TestUnknownActionStillAcknowledged() {
	w := s.deliver("installation", installationPayload("new_permissions_accepted"), true)
	s.Equal(http.StatusOK, w.Code)
}

func (s *WebhookHandlerTestSuite) TestUnhandledEventTypeAcknowledged() {
	w := s.deliver("push", []byte(`{"ref": "refs/heads/main"}`), true)
	s.Equal(http.StatusOK, w.Code)
}

func (s *WebhookHandlerTestSuite) TestInstallationRepositoriesAcknowledged() {
	payload := []byte(`{
		"action": "added",
		"installation": {"id": 42},
		"repositories_added": [{"id": 1, "name": "api"}],
		"repositories_removed": []
	}`)

	w := s.deliver("installation_repositories", payload, true)
	s.Equal(http.StatusOK, w.Code)

	// informational only, nothing is written
	var projectCount int64
	s.db.DB().Model(&models.Project{}).Count(&projectCount)
	s.EqualValues(0, projectCount)
}

func TestWebhookHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(WebhookHandlerTestSuite))
}
