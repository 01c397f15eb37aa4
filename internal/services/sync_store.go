package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GrowlyX/refactorproject-web/internal/database"
	"github.com/GrowlyX/refactorproject-web/internal/models"
)

// SyncStore is the entity-store surface of reconciliation. Every write is an
// atomic per-row upsert keyed by an external GitHub id, so replaying a sync
// can never create duplicates.
type SyncStore struct {
	db database.Database
}

func NewSyncStore(db database.Database) *SyncStore {
	return &SyncStore{db: db}
}

func (s *SyncStore) FindOrganizationByGithubID(ctx context.Context, githubID int64) (*models.Organization, error) {
	var org models.Organization
	err := s.db.DB().WithContext(ctx).Where("github_id = ?", githubID).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

func (s *SyncStore) GetOrganization(ctx context.Context, orgID uint) (*models.Organization, error) {
	var org models.Organization
	err := s.db.DB().WithContext(ctx).Where("id = ?", orgID).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("organization not found")
		}
		return nil, err
	}
	return &org, nil
}

// UpsertOrganizationFromInstallation creates or refreshes the organization
// row for an installation's account, keyed by the external org id. A renamed
// org updates in place.
func (s *SyncStore) UpsertOrganizationFromInstallation(ctx context.Context, inst *Installation) (*models.Organization, error) {
	org, err := s.FindOrganizationByGithubID(ctx, inst.Account.ID)
	if err != nil {
		return nil, err
	}

	if org != nil {
		org.Name = inst.Account.Login
		org.GithubAppInstalled = true
		org.Status = models.OrganizationStatusActive
		if err := s.db.DB().WithContext(ctx).Save(org).Error; err != nil {
			return nil, err
		}
		return org, nil
	}

	org = &models.Organization{
		GithubID:           inst.Account.ID,
		Name:               inst.Account.Login,
		Status:             models.OrganizationStatusActive,
		GithubAppInstalled: true,
	}
	if err := s.db.DB().WithContext(ctx).Create(org).Error; err != nil {
		return nil, err
	}
	return org, nil
}

func (s *SyncStore) ListInstalledOrganizations(ctx context.Context) ([]models.Organization, error) {
	var orgs []models.Organization
	err := s.db.DB().WithContext(ctx).
		Where("github_app_installed = ?", true).
		Find(&orgs).Error
	return orgs, err
}

// MarkOrganizationSynced stamps a completed reconciliation.
func (s *SyncStore) MarkOrganizationSynced(ctx context.Context, orgID uint) error {
	now := time.Now().UTC()
	return s.db.DB().WithContext(ctx).
		Model(&models.Organization{}).
		Where("id = ?", orgID).
		Updates(map[string]interface{}{
			"last_sync_at":         now,
			"github_app_installed": true,
		}).Error
}

// TouchOrganizationSyncTime refreshes only the sync timestamp (member-only syncs).
func (s *SyncStore) TouchOrganizationSyncTime(ctx context.Context, orgID uint) error {
	return s.db.DB().WithContext(ctx).
		Model(&models.Organization{}).
		Where("id = ?", orgID).
		Update("last_sync_at", time.Now().UTC()).Error
}

// SetOrganizationInactive records an uninstall. Projects and memberships are
// left untouched so a re-install can pick the history back up.
func (s *SyncStore) SetOrganizationInactive(ctx context.Context, githubOrgID int64) (*models.Organization, error) {
	org, err := s.FindOrganizationByGithubID(ctx, githubOrgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, nil
	}

	err = s.db.DB().WithContext(ctx).
		Model(&models.Organization{}).
		Where("id = ?", org.ID).
		Updates(map[string]interface{}{
			"github_app_installed": false,
			"status":               models.OrganizationStatusInactive,
		}).Error
	if err != nil {
		return nil, err
	}
	return org, nil
}

// SetOrganizationStatus flips only the lifecycle status (suspend/unsuspend).
func (s *SyncStore) SetOrganizationStatus(ctx context.Context, githubOrgID int64, status models.OrganizationStatus) (*models.Organization, error) {
	org, err := s.FindOrganizationByGithubID(ctx, githubOrgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, nil
	}

	err = s.db.DB().WithContext(ctx).
		Model(&models.Organization{}).
		Where("id = ?", org.ID).
		Update("status", status).Error
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (s *SyncStore) FindOrCreateUserByAuthID(ctx context.Context, authID string) (*models.User, error) {
	var user models.User
	err := s.db.DB().WithContext(ctx).Where("auth_id = ?", authID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{AuthID: authID}
	if err := s.db.DB().WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindOrCreateUserByGithubID resolves a discovered org member to a local
// user. Users created this way get a placeholder auth id until they sign in
// and link their account.
func (s *SyncStore) FindOrCreateUserByGithubID(ctx context.Context, githubID int64, login string) (*models.User, error) {
	var user models.User
	err := s.db.DB().WithContext(ctx).Where("github_id = ?", githubID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		AuthID:         fmt.Sprintf("github_%d", githubID),
		GithubID:       &githubID,
		GithubUsername: &login,
	}
	if err := s.db.DB().WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LinkUserGithubIdentity fills in a user's GitHub identity after OAuth.
func (s *SyncStore) LinkUserGithubIdentity(ctx context.Context, userID uint, githubID int64, login string, email *string) error {
	updates := map[string]interface{}{
		"github_id":       githubID,
		"github_username": login,
	}
	if email != nil {
		updates["github_email"] = *email
	}
	return s.db.DB().WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates).Error
}

// EnsureMembership guarantees a membership row exists without touching the
// GitHub-side activity flag. Used to attach the triggering principal.
func (s *SyncStore) EnsureMembership(ctx context.Context, orgID, userID uint) error {
	membership := models.OrganizationMember{
		OrganizationID: orgID,
		UserID:         userID,
		JoinedAt:       time.Now().UTC(),
	}
	return s.db.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&membership).Error
}

// UpsertMembership records a member seen in GitHub's member list: insert if
// absent, otherwise refresh the active flag and sync timestamp in place.
func (s *SyncStore) UpsertMembership(ctx context.Context, orgID, userID uint, active bool) error {
	now := time.Now().UTC()
	membership := models.OrganizationMember{
		OrganizationID:         orgID,
		UserID:                 userID,
		GithubMembershipActive: active,
		LastSyncAt:             &now,
		JoinedAt:               now,
	}
	return s.db.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"github_membership_active", "last_sync_at"}),
		}).
		Create(&membership).Error
}

func (s *SyncStore) FindMembership(ctx context.Context, orgID, userID uint) (*models.OrganizationMember, error) {
	var membership models.OrganizationMember
	err := s.db.DB().WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &membership, nil
}

// UpsertProject mirrors one repository, keyed by the globally unique external
// repository id. Reconciliation never deletes projects.
func (s *SyncStore) UpsertProject(ctx context.Context, orgID uint, repo Repository) error {
	project := models.Project{
		OrganizationID:     orgID,
		GithubRepositoryID: repo.ID,
		RepositoryName:     repo.Name,
		RepositoryURL:      repo.HTMLURL,
		Description:        repo.Description,
		DefaultBranch:      repo.DefaultBranch,
		IsPrivate:          repo.Private,
		Language:           repo.Language,
		Stars:              repo.Stars,
		Forks:              repo.Forks,
	}
	return s.db.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "github_repository_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"organization_id", "repository_name", "repository_url", "description",
				"default_branch", "is_private", "language", "stars", "forks", "updated_at",
			}),
		}).
		Create(&project).Error
}

// InsertSyncLog appends one audit row. The log is append-only.
func (s *SyncStore) InsertSyncLog(ctx context.Context, orgID uint, syncType, status string, details models.JSON, errMsg *string) error {
	log := models.SyncLog{
		OrganizationID: orgID,
		SyncType:       syncType,
		Status:         status,
		Details:        details,
		Error:          errMsg,
	}
	return s.db.DB().WithContext(ctx).Create(&log).Error
}

func (s *SyncStore) GetSyncLogs(ctx context.Context, orgID uint, limit int) ([]models.SyncLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.SyncLog
	err := s.db.DB().WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// UpsertPendingInstallation records a just-created installation for the poll
// endpoint. Duplicate deliveries are ignored on conflict.
func (s *SyncStore) UpsertPendingInstallation(ctx context.Context, githubOrgID int64, orgName string) error {
	pending := models.PendingInstallation{
		GithubOrgID: githubOrgID,
		OrgName:     orgName,
		InstalledAt: time.Now().UTC(),
	}
	return s.db.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "github_org_id"}},
			DoNothing: true,
		}).
		Create(&pending).Error
}

func (s *SyncStore) ListPendingInstallations(ctx context.Context, since time.Time) ([]models.PendingInstallation, error) {
	var pending []models.PendingInstallation
	err := s.db.DB().WithContext(ctx).
		Where("installed_at >= ?", since).
		Order("installed_at DESC").
		Find(&pending).Error
	return pending, err
}

func (s *SyncStore) FindOrganizationByName(ctx context.Context, name string) (*models.Organization, error) {
	var org models.Organization
	err := s.db.DB().WithContext(ctx).Where("name = ?", name).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

// ListOrganizationsForUser returns the organizations a principal belongs to.
func (s *SyncStore) ListOrganizationsForUser(ctx context.Context, userID uint) ([]models.Organization, error) {
	var orgs []models.Organization
	err := s.db.DB().WithContext(ctx).
		Joins("JOIN organization_members ON organization_members.organization_id = organizations.id").
		Where("organization_members.user_id = ?", userID).
		Find(&orgs).Error
	return orgs, err
}

func (s *SyncStore) ListProjects(ctx context.Context, orgID uint) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.DB().WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("repository_name").
		Find(&projects).Error
	return projects, err
}
