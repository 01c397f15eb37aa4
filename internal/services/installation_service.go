package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/GrowlyX/refactorproject-web/internal/models"
	"github.com/GrowlyX/refactorproject-web/pkg/utils"
)

// ErrUnknownAction marks an installation webhook action outside the handled
// set. Callers log it and acknowledge the delivery anyway.
var ErrUnknownAction = errors.New("unknown installation action")

const (
	InstallationActionCreated   = "created"
	InstallationActionDeleted   = "deleted"
	InstallationActionSuspend   = "suspend"
	InstallationActionUnsuspend = "unsuspend"
)

// InstallationEvent is a normalized installation lifecycle webhook payload.
type InstallationEvent struct {
	Action         string
	InstallationID int64
	Account        InstallationAccount
}

// InstallationService applies installation lifecycle events to the store.
// Handlers are idempotent: GitHub redelivers webhooks, and the same event
// applied twice must land in the same state.
type InstallationService struct {
	store  *SyncStore
	sync   *SyncService
	logger utils.Logger
}

func NewInstallationService(store *SyncStore, sync *SyncService) *InstallationService {
	return &InstallationService{
		store:  store,
		sync:   sync,
		logger: utils.GetLogger(),
	}
}

// HandleInstallationEvent dispatches one lifecycle event. Store errors are
// logged and swallowed; a webhook delivery is acknowledged once its signature
// checks out, whatever happens afterwards. Only ErrUnknownAction escapes, so
// the caller can log the unrecognized action.
func (s *InstallationService) HandleInstallationEvent(ctx context.Context, event InstallationEvent) error {
	log := s.logger.WithFields(utils.LogFields{
		"action":          event.Action,
		"installation_id": event.InstallationID,
		"account":         event.Account.Login,
	})

	switch event.Action {
	case InstallationActionCreated:
		s.handleCreated(ctx, event, log)
	case InstallationActionDeleted:
		s.handleDeleted(ctx, event, log)
	case InstallationActionSuspend:
		s.handleStatusChange(ctx, event, models.OrganizationStatusSuspended, log)
	case InstallationActionUnsuspend:
		s.handleStatusChange(ctx, event, models.OrganizationStatusActive, log)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, event.Action)
	}
	return nil
}

// handleCreated records the pending installation for the dashboard poll and
// kicks off the first reconciliation immediately.
func (s *InstallationService) handleCreated(ctx context.Context, event InstallationEvent, log utils.Logger) {
	if event.Account.Type != "" && event.Account.Type != "Organization" {
		log.Info("ignoring installation on non-organization account")
		return
	}

	if err := s.store.UpsertPendingInstallation(ctx, event.Account.ID, event.Account.Login); err != nil {
		log.Error("failed to record pending installation", err)
	}

	result := s.sync.SyncInstallation(ctx, event.InstallationID, nil)
	if !result.Success {
		log.Warn("initial sync after install did not complete", utils.LogFields{
			"errors": result.Errors,
		})
		return
	}
	log.Info("installation created and synced", utils.LogFields{
		"repositories": result.RepositoriesSynced,
		"members":      result.MembersSynced,
	})
}

// handleDeleted soft-deletes: the organization is flagged uninstalled and
// inactive, but its projects, memberships and audit history survive a
// re-install.
func (s *InstallationService) handleDeleted(ctx context.Context, event InstallationEvent, log utils.Logger) {
	org, err := s.store.SetOrganizationInactive(ctx, event.Account.ID)
	if err != nil {
		log.Error("failed to deactivate organization", err)
		return
	}
	if org == nil {
		log.Warn("uninstall for unknown organization")
		return
	}

	s.recordLifecycle(ctx, org.ID, event, log)
	log.Info("installation removed, organization deactivated")
}

func (s *InstallationService) handleStatusChange(ctx context.Context, event InstallationEvent, status models.OrganizationStatus, log utils.Logger) {
	org, err := s.store.SetOrganizationStatus(ctx, event.Account.ID, status)
	if err != nil {
		log.Error("failed to update organization status", err)
		return
	}
	if org == nil {
		log.Warn("lifecycle event for unknown organization")
		return
	}

	s.recordLifecycle(ctx, org.ID, event, log)
	log.Info("organization status updated", utils.LogFields{"status": status})
}

// HandleRepositoriesEvent acknowledges installation_repositories deliveries.
// Repository additions and removals are picked up by the next full sync, so
// the event is informational only.
func (s *InstallationService) HandleRepositoriesEvent(ctx context.Context, action string, installationID int64, added, removed int) {
	s.logger.Info("installation repositories changed", utils.LogFields{
		"action":          action,
		"installation_id": installationID,
		"added":           added,
		"removed":         removed,
	})
}

func (s *InstallationService) recordLifecycle(ctx context.Context, orgID uint, event InstallationEvent, log utils.Logger) {
	details := models.JSON{
		"action":          event.Action,
		"installation_id": event.InstallationID,
		"account":         event.Account.Login,
	}
	if err := s.store.InsertSyncLog(ctx, orgID, models.SyncTypeLifecycle, models.SyncStatusSuccess, details, nil); err != nil {
		log.Error("failed to record lifecycle event", err)
	}
}
