package services

import (
	"context"
	"fmt"
	"time"
)

// Installation describes a GitHub App installation as returned by the apps
// API, reduced to the fields reconciliation needs.
type Installation struct {
	ID      int64
	Account InstallationAccount
}

type InstallationAccount struct {
	ID    int64
	Login string
	Type  string // "Organization" or "User"
}

func (i *Installation) IsOrganization() bool {
	return i.Account.Type == "Organization"
}

// InstallationToken is a short-lived installation access token.
type InstallationToken struct {
	Token     string
	ExpiresAt time.Time
}

// Repository is a GitHub repository visible to an installation.
type Repository struct {
	ID            int64
	Name          string
	FullName      string
	Description   string
	HTMLURL       string
	DefaultBranch string
	Private       bool
	Language      *string
	Stars         int
	Forks         int
}

// Member is a GitHub user appearing in an organization's member list.
type Member struct {
	ID    int64
	Login string
	Email *string
}

// AppClient is the GitHub App surface the reconciler consumes: installation
// resolution, token minting and removal, authenticated as the App itself.
type AppClient interface {
	GetInstallation(ctx context.Context, installationID int64) (*Installation, error)
	ListInstallations(ctx context.Context) ([]*Installation, error)
	CreateInstallationToken(ctx context.Context, installationID int64) (*InstallationToken, error)
	DeleteInstallation(ctx context.Context, installationID int64) error
}

// InstallationLister is the installation-scoped GitHub surface: paginated
// repository and member listings, authenticated as one installation.
type InstallationLister interface {
	ListInstallationRepositories(ctx context.Context, installationID int64) ([]Repository, error)
	ListOrganizationMembers(ctx context.Context, installationID int64, orgLogin string) ([]Member, error)
}

// SyncResult accumulates the outcome of one reconciliation run. Phase
// failures append to Errors without flipping Success; Success goes false only
// when the run as a whole could not proceed.
type SyncResult struct {
	Success             bool     `json:"success"`
	OrganizationsSynced int      `json:"organizations_synced"`
	RepositoriesSynced  int      `json:"repositories_synced"`
	MembersSynced       int      `json:"members_synced"`
	Errors              []string `json:"errors"`
}

func NewSyncResult() *SyncResult {
	return &SyncResult{
		Success: true,
		Errors:  []string{},
	}
}

// AddError records a contained failure; the run is still considered a success.
func (r *SyncResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

func (r *SyncResult) AddErrorf(format string, args ...interface{}) {
	r.AddError(fmt.Sprintf(format, args...))
}

// Fail records a failure that prevented the run from proceeding at all.
func (r *SyncResult) Fail(msg string) {
	r.Success = false
	r.AddError(msg)
}

// Merge folds a per-organization result into an aggregate one.
func (r *SyncResult) Merge(other *SyncResult) {
	if other == nil {
		return
	}
	r.OrganizationsSynced += other.OrganizationsSynced
	r.RepositoriesSynced += other.RepositoriesSynced
	r.MembersSynced += other.MembersSynced
	r.Errors = append(r.Errors, other.Errors...)
}
