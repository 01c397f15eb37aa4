package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/GrowlyX/refactorproject-web/internal/config"
	"github.com/GrowlyX/refactorproject-web/internal/database"
	"github.com/GrowlyX/refactorproject-web/internal/models"
)

type InstallationServiceTestSuite struct {
	suite.Suite
	db            database.Database
	store         *SyncStore
	app           *mockAppClient
	lister        *mockLister
	installations *InstallationService
	ctx           context.Context
}

func (s *InstallationServiceTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.store = NewSyncStore(s.db)
	s.app = new(mockAppClient)
	s.lister = new(mockLister)
	sync := NewSyncService(s.store, s.app, s.lister, config.SyncConfig{})
	s.installations = NewInstallationService(s.store, sync)
	s.ctx = context.Background()
}

func (s *InstallationServiceTestSuite) createdEvent() InstallationEvent {
	return InstallationEvent{
		Action:         InstallationActionCreated,
		InstallationID: 42,
		Account: InstallationAccount{
			ID:    1001,
			Login: "acme",
			Type:  "Organization",
		},
	}
}

func (s *InstallationServiceTestSuite) TestCreatedRecordsPendingAndSyncs() {
	s.app.On("GetInstallation", mock.Anything, int64(42)).Return(orgInstallation(42, 1001, "acme"), nil)
	s.lister.On("ListInstallationRepositories", mock.Anything, int64(42)).Return([]Repository{{ID: 1, Name: "api"}}, nil)
	s.lister.On("ListOrganizationMembers", mock.Anything, int64(42), "acme").Return([]Member{}, nil)

	err := s.installations.HandleInstallationEvent(s.ctx, s.createdEvent())
	s.Require().NoError(err)

	var pending models.PendingInstallation
	s.Require().NoError(s.db.DB().First(&pending).Error)
	s.Equal(int64(1001), pending.GithubOrgID)
	s.Equal("acme", pending.OrgName)

	org, findErr := s.store.FindOrganizationByGithubID(s.ctx, 1001)
	s.Require().NoError(findErr)
	s.Require().NotNil(org)
	s.True(org.GithubAppInstalled)
}

func (s *InstallationServiceTestSuite) TestCreatedRedeliveryIsIdempotent() {
	s.app.On("GetInstallation", mock.Anything, int64(42)).Return(orgInstallation(42, 1001, "acme"), nil)
	s.lister.On("ListInstallationRepositories", mock.Anything, int64(42)).Return([]Repository{}, nil)
	s.lister.On("ListOrganizationMembers", mock.Anything, int64(42), "acme").Return([]Member{}, nil)

	s.Require().NoError(s.installations.HandleInstallationEvent(s.ctx, s.createdEvent()))
	s.Require().NoError(s.installations.HandleInstallationEvent(s.ctx, s.createdEvent()))

	var pendingCount, orgCount int64
	s.db.DB().Model(&models.PendingInstallation{}).Count(&pendingCount)
	s.db.DB().Model(&models.Organization{}).Count(&orgCount)
	s.EqualValues(1, pendingCount)
	s.EqualValues(1, orgCount)
}

func (s *InstallationServiceTestSuite) TestDeletedIsSoft() {
	org := &models.Organization{
		GithubID:           1001,
		Name:               "acme",
		Status:             models.OrganizationStatusActive,
		GithubAppInstalled: true,
	}
	s.Require().NoError(s.db.DB().Create(org).Error)
	project := &models.Project{
		OrganizationID:     org.ID,
		GithubRepositoryID: 1,
		RepositoryName:     "api",
	}
	s.Require().NoError(s.db.DB().Create(project).Error)

	err := s.installations.HandleInstallationEvent(s.ctx, InstallationEvent{
		Action:         InstallationActionDeleted,
		InstallationID: 42,
		Account:        InstallationAccount{ID: 1001, Login: "acme", Type: "Organization"},
	})
	s.Require().NoError(err)

	var updated models.Organization
	s.Require().NoError(s.db.DB().First(&updated, org.ID).Error)
	s.False(updated.GithubAppInstalled)
	s.Equal(models.OrganizationStatusInactive, updated.Status)

	// history survives the uninstall
	var projectCount int64
	s.db.DB().Model(&models.Project{}).Count(&projectCount)
	s.EqualValues(1, projectCount)

	var log models.SyncLog
	s.Require().NoError(s.db.DB().First(&log).Error)
	s.Equal(models.SyncTypeLifecycle, log.SyncType)
}

func (s *InstallationServiceTestSuite) TestDeletedForUnknownOrgIsHarmless() {
	err := s.installations.HandleInstallationEvent(s.ctx, InstallationEvent{
		Action:         InstallationActionDeleted,
		InstallationID: 42,
		Account:        InstallationAccount{ID: 9999, Login: "ghost", Type: "Organization"},
	})
	s.NoError(err)
}

func (s *InstallationServiceTestSuite) TestSuspendAndUnsuspend() {
	org := &models.Organization{
		GithubID:           1001,
		Name:               "acme",
		Status:             models.OrganizationStatusActive,
		GithubAppInstalled: true,
	}
	s.Require().NoError(s.db.DB().Create(org).Error)

	err := s.installations.HandleInstallationEvent(s.ctx, InstallationEvent{
		Action:  InstallationActionSuspend,
		Account: InstallationAccount{ID: 1001, Login: "acme", Type: "Organization"},
	})
	s.Require().NoError(err)

	var suspended models.Organization
	s.Require().NoError(s.db.DB().First(&suspended, org.ID).Error)
	s.Equal(models.OrganizationStatusSuspended, suspended.Status)
	s.True(suspended.GithubAppInstalled)

	err = s.installations.HandleInstallationEvent(s.ctx, InstallationEvent{
		Action:  InstallationActionUnsuspend,
		Account: InstallationAccount{ID: 1001, Login: "acme", Type: "Organization"},
	})
	s.Require().NoError(err)

	var active models.Organization
	s.Require().NoError(s.db.DB().First(&active, org.ID).Error)
	s.Equal(models.OrganizationStatusActive, active.Status)
}

func (s *InstallationServiceTestSuite) TestUnknownActionSurfaces() {
	err := s.installations.HandleInstallationEvent(s.ctx, InstallationEvent{
		Action:  "new_permissions_accepted",
		Account: InstallationAccount{ID: 1001, Login: "acme", Type: "Organization"},
	})
	s.Require().Error(err)
	s.ErrorIs(err, ErrUnknownAction)
}

func (s *InstallationServiceTestSuite) TestCreatedOnUserAccountIgnored() {
	err := s.installations.HandleInstallationEvent(s.ctx, InstallationEvent{
		Action:         InstallationActionCreated,
		InstallationID: 7,
		Account:        InstallationAccount{ID: 500, Login: "someone", Type: "User"},
	})
	s.Require().NoError(err)

	var pendingCount int64
	s.db.DB().Model(&models.PendingInstallation{}).Count(&pendingCount)
	s.EqualValues(0, pendingCount)
	s.app.AssertNotCalled(s.T(), "GetInstallation", mock.Anything, mock.Anything)
}

func TestInstallationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InstallationServiceTestSuite))
}
