package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/GrowlyX/refactorproject-web/internal/config"
	"github.com/GrowlyX/refactorproject-web/internal/models"
	"github.com/GrowlyX/refactorproject-web/pkg/utils"
)

// SyncService reconciles GitHub installation state into the local store. A
// run is best-effort: each phase that fails appends to the result's error
// list and the remaining phases still execute, so one bad repository or
// member never blocks the rest of an organization.
type SyncService struct {
	store  *SyncStore
	app    AppClient
	github InstallationLister
	cfg    config.SyncConfig
	group  singleflight.Group
	logger utils.Logger
}

func NewSyncService(store *SyncStore, app AppClient, github InstallationLister, cfg config.SyncConfig) *SyncService {
	return &SyncService{
		store:  store,
		app:    app,
		github: github,
		cfg:    cfg,
		logger: utils.GetLogger(),
	}
}

// SyncInstallation reconciles a single installation. Concurrent runs against
// the same organization, whatever entry point triggered them, coalesce into
// one run that all callers share. authID, when set, identifies the user who
// triggered the run; they get a membership in the synced organization.
func (s *SyncService) SyncInstallation(ctx context.Context, installationID int64, authID *string) *SyncResult {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	return s.syncInstallation(ctx, installationID, authID)
}

func (s *SyncService) syncInstallation(ctx context.Context, installationID int64, authID *string) *SyncResult {
	result := NewSyncResult()
	start := time.Now()

	inst, err := s.app.GetInstallation(ctx, installationID)
	if err != nil {
		result.Fail(fmt.Sprintf("failed to resolve installation %d: %v", installationID, err))
		s.logger.Error("installation sync failed", err, utils.LogFields{
			"installation_id": installationID,
		})
		return result
	}

	s.syncOne(ctx, inst, authID, result)

	s.logger.Info("installation sync finished", utils.LogFields{
		"installation_id": installationID,
		"organizations":   result.OrganizationsSynced,
		"repositories":    result.RepositoriesSynced,
		"members":         result.MembersSynced,
		"errors":          len(result.Errors),
		"duration":        time.Since(start).String(),
	})
	return result
}

// syncOne funnels one installation's reconciliation through the
// per-organization flight group, keyed by the account's external id. A
// webhook-triggered sync, a manual resync and a scheduler sweep hitting the
// same organization at the same time share one run and one audit row.
func (s *SyncService) syncOne(ctx context.Context, inst *Installation, authID *string, result *SyncResult) {
	key := fmt.Sprintf("org:%d", inst.Account.ID)

	v, _, _ := s.group.Do(key, func() (interface{}, error) {
		return s.reconcileOrg(ctx, inst, authID), nil
	})

	run := v.(*SyncResult)
	result.Merge(run)
	if !run.Success {
		result.Success = false
	}
}

// reconcileOrg runs the full reconciliation for one installation's
// organization and records exactly one audit row for it, whatever the outcome
// of the individual phases.
func (s *SyncService) reconcileOrg(ctx context.Context, inst *Installation, authID *string) *SyncResult {
	result := NewSyncResult()

	if !inst.IsOrganization() {
		result.AddErrorf("installation %d is on a %s account; only organizations are supported", inst.ID, inst.Account.Type)
		s.logger.Info("skipping non-organization installation", utils.LogFields{
			"installation_id": inst.ID,
			"account":         inst.Account.Login,
			"account_type":    inst.Account.Type,
		})
		return result
	}

	org, err := s.store.UpsertOrganizationFromInstallation(ctx, inst)
	if err != nil {
		result.Fail(fmt.Sprintf("failed to upsert organization %s: %v", inst.Account.Login, err))
		return result
	}
	result.OrganizationsSynced++

	if authID != nil && *authID != "" {
		if err := s.attachTriggeringUser(ctx, org.ID, *authID); err != nil {
			result.AddErrorf("failed to attach user to %s: %v", org.Name, err)
		}
	}

	s.syncRepositories(ctx, inst, org, result)
	s.syncMembers(ctx, inst, org, result)

	if err := s.store.MarkOrganizationSynced(ctx, org.ID); err != nil {
		result.AddErrorf("failed to update sync time for %s: %v", org.Name, err)
	}

	s.recordSyncLog(ctx, org.ID, models.SyncTypeInstallation, result)
	return result
}

func (s *SyncService) syncRepositories(ctx context.Context, inst *Installation, org *models.Organization, result *SyncResult) {
	repos, err := s.github.ListInstallationRepositories(ctx, inst.ID)
	if err != nil {
		result.AddErrorf("failed to list repositories for %s: %v", org.Name, err)
		return
	}

	for _, repo := range repos {
		if err := s.store.UpsertProject(ctx, org.ID, repo); err != nil {
			result.AddErrorf("failed to sync repository %s: %v", repo.FullName, err)
			continue
		}
		result.RepositoriesSynced++
	}
}

// syncMembers mirrors the current member list. Members who left the
// organization keep their rows untouched; departures are handled by GitHub's
// own webhook deliveries, not inferred from list absence.
func (s *SyncService) syncMembers(ctx context.Context, inst *Installation, org *models.Organization, result *SyncResult) {
	members, err := s.github.ListOrganizationMembers(ctx, inst.ID, inst.Account.Login)
	if err != nil {
		result.AddErrorf("failed to list members for %s: %v", org.Name, err)
		return
	}

	for _, member := range members {
		user, err := s.store.FindOrCreateUserByGithubID(ctx, member.ID, member.Login)
		if err != nil {
			result.AddErrorf("failed to resolve member %s: %v", member.Login, err)
			continue
		}
		if err := s.store.UpsertMembership(ctx, org.ID, user.ID, true); err != nil {
			result.AddErrorf("failed to sync membership for %s: %v", member.Login, err)
			continue
		}
		result.MembersSynced++
	}
}

func (s *SyncService) attachTriggeringUser(ctx context.Context, orgID uint, authID string) error {
	user, err := s.store.FindOrCreateUserByAuthID(ctx, authID)
	if err != nil {
		return err
	}
	return s.store.EnsureMembership(ctx, orgID, user.ID)
}

// recordSyncLog writes the single audit row for a reconciliation attempt.
// Audit failures are logged but never surfaced into the result.
func (s *SyncService) recordSyncLog(ctx context.Context, orgID uint, syncType string, result *SyncResult) {
	status := models.SyncStatusSuccess
	if !result.Success {
		status = models.SyncStatusFailed
	} else if len(result.Errors) > 0 {
		status = models.SyncStatusPartial
	}

	details := models.JSON{
		"organizations_synced": result.OrganizationsSynced,
		"repositories_synced":  result.RepositoriesSynced,
		"members_synced":       result.MembersSynced,
	}

	var errMsg *string
	if len(result.Errors) > 0 {
		joined := result.Errors[0]
		for _, e := range result.Errors[1:] {
			joined += "; " + e
		}
		errMsg = &joined
	}

	if err := s.store.InsertSyncLog(ctx, orgID, syncType, status, details, errMsg); err != nil {
		s.logger.Error("failed to record sync log", err, utils.LogFields{
			"organization_id": orgID,
			"sync_type":       syncType,
		})
	}
}

// SyncAllInstallations reconciles every stored organization that still has
// the App installed, matching each against the live installation list by
// account login. An organization with no resolvable installation contributes
// an error string and is skipped; it is not deactivated here, that is the
// lifecycle handler's job.
func (s *SyncService) SyncAllInstallations(ctx context.Context) *SyncResult {
	aggregate := NewSyncResult()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	orgs, err := s.store.ListInstalledOrganizations(ctx)
	if err != nil {
		aggregate.Fail(fmt.Sprintf("failed to list installed organizations: %v", err))
		return aggregate
	}
	if len(orgs) == 0 {
		return aggregate
	}

	installations, err := s.app.ListInstallations(ctx)
	if err != nil {
		aggregate.Fail(fmt.Sprintf("failed to list installations: %v", err))
		return aggregate
	}

	byLogin := make(map[string]*Installation, len(installations))
	for _, inst := range installations {
		if inst.IsOrganization() {
			byLogin[inst.Account.Login] = inst
		}
	}

	for _, org := range orgs {
		inst, ok := byLogin[org.Name]
		if !ok {
			aggregate.AddErrorf("no installation found for organization %s", org.Name)
			continue
		}
		result := NewSyncResult()
		s.syncOne(ctx, inst, nil, result)
		aggregate.Merge(result)
	}

	s.logger.Info("sweep finished", utils.LogFields{
		"organizations": aggregate.OrganizationsSynced,
		"repositories":  aggregate.RepositoriesSynced,
		"members":       aggregate.MembersSynced,
		"errors":        len(aggregate.Errors),
	})
	return aggregate
}

// SyncAllInstallationsForUser reconciles every installation and attaches the
// given user to each organization synced. Used right after OAuth linking,
// when the user's org memberships are not yet known locally.
func (s *SyncService) SyncAllInstallationsForUser(ctx context.Context, authID string) *SyncResult {
	aggregate := NewSyncResult()

	installations, err := s.app.ListInstallations(ctx)
	if err != nil {
		aggregate.Fail(fmt.Sprintf("failed to list installations: %v", err))
		return aggregate
	}

	for _, inst := range installations {
		result := NewSyncResult()
		s.syncOne(ctx, inst, &authID, result)
		aggregate.Merge(result)
	}
	return aggregate
}

// SyncOrganization reconciles one already-known organization by matching it
// against the App's live installations by login.
func (s *SyncService) SyncOrganization(ctx context.Context, orgID uint) (*SyncResult, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	inst, err := s.findInstallationForOrg(ctx, org)
	if err != nil {
		result := NewSyncResult()
		result.Fail(err.Error())
		return result, nil
	}

	result := NewSyncResult()
	s.syncOne(ctx, inst, nil, result)
	return result, nil
}

// SyncOrganizationMembers refreshes only the member mirror of one
// organization, leaving projects untouched.
func (s *SyncService) SyncOrganizationMembers(ctx context.Context, orgID uint) (*SyncResult, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	inst, err := s.findInstallationForOrg(ctx, org)
	if err != nil {
		result := NewSyncResult()
		result.Fail(err.Error())
		return result, nil
	}

	v, _, _ := s.group.Do(fmt.Sprintf("org:%d:members", inst.Account.ID), func() (interface{}, error) {
		result := NewSyncResult()
		s.syncMembers(ctx, inst, org, result)
		if len(result.Errors) == 0 || result.MembersSynced > 0 {
			if err := s.store.TouchOrganizationSyncTime(ctx, org.ID); err != nil {
				result.AddErrorf("failed to update sync time for %s: %v", org.Name, err)
			}
		}
		s.recordSyncLog(ctx, org.ID, models.SyncTypeMembers, result)
		return result, nil
	})
	return v.(*SyncResult), nil
}

// findInstallationForOrg locates the live installation backing a stored
// organization. Match is by account login, since the installation id is not
// persisted locally.
func (s *SyncService) findInstallationForOrg(ctx context.Context, org *models.Organization) (*Installation, error) {
	installations, err := s.app.ListInstallations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list installations: %v", err)
	}

	for _, inst := range installations {
		if inst.IsOrganization() && inst.Account.Login == org.Name {
			return inst, nil
		}
	}
	return nil, fmt.Errorf("no installation found for organization %s", org.Name)
}

// MintInstallationToken issues a short-lived installation access token for
// an organization, for callers that need to reach GitHub directly, such as a
// refactor job cloning the organization's repositories.
func (s *SyncService) MintInstallationToken(ctx context.Context, orgID uint) (*InstallationToken, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	inst, err := s.findInstallationForOrg(ctx, org)
	if err != nil {
		return nil, err
	}

	token, err := s.app.CreateInstallationToken(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation token for %s: %v", org.Name, err)
	}
	return token, nil
}

// UninstallOrganization removes the App installation from an organization and
// deactivates the local mirror immediately, without waiting for GitHub's
// deleted webhook to arrive.
func (s *SyncService) UninstallOrganization(ctx context.Context, orgID uint) error {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return err
	}

	inst, err := s.findInstallationForOrg(ctx, org)
	if err != nil {
		return err
	}

	if err := s.app.DeleteInstallation(ctx, inst.ID); err != nil {
		return fmt.Errorf("failed to delete installation for %s: %v", org.Name, err)
	}

	if _, err := s.store.SetOrganizationInactive(ctx, org.GithubID); err != nil {
		return fmt.Errorf("failed to deactivate organization %s: %v", org.Name, err)
	}

	s.logger.Info("organization uninstalled", utils.LogFields{
		"organization_id": org.ID,
		"organization":    org.Name,
	})
	return nil
}

// GetSyncLogs returns recent audit rows for an organization, newest first.
func (s *SyncService) GetSyncLogs(ctx context.Context, orgID uint, limit int) ([]models.SyncLog, error) {
	return s.store.GetSyncLogs(ctx, orgID, limit)
}
