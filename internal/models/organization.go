package models

import (
	"time"
)

type OrganizationStatus string

const (
	OrganizationStatusActive    OrganizationStatus = "active"
	OrganizationStatusSuspended OrganizationStatus = "suspended"
	OrganizationStatusInactive  OrganizationStatus = "inactive"
)

// Organization mirrors a GitHub organization. GithubID is the immutable
// external identifier and the only key reconciliation joins on; the GitHub
// login can be renamed without creating a duplicate row.
type Organization struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	GithubID           int64              `gorm:"uniqueIndex;not null" json:"github_id"`
	Name               string             `gorm:"type:varchar(255);not null;index" json:"name" validate:"required,min=1,max=255"`
	Status             OrganizationStatus `gorm:"type:varchar(20);default:active" json:"status"`
	GithubAppInstalled bool               `gorm:"default:false" json:"github_app_installed"`
	LastSyncAt         *time.Time         `json:"last_sync_at"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`

	Members  []OrganizationMember `gorm:"foreignKey:OrganizationID" json:"members,omitempty"`
	Projects []Project            `gorm:"foreignKey:OrganizationID" json:"projects,omitempty"`
	SyncLogs []SyncLog            `gorm:"foreignKey:OrganizationID" json:"sync_logs,omitempty"`
}

func (o *Organization) TableName() string {
	return "organizations"
}

// OrganizationMember links a local user to an organization. Rows are never
// deleted during reconciliation; a member who disappears from GitHub keeps
// their row so audit history and app-level grants survive a re-install.
type OrganizationMember struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	OrganizationID         uint       `gorm:"not null;uniqueIndex:idx_org_members_org_user" json:"organization_id"`
	UserID                 uint       `gorm:"not null;uniqueIndex:idx_org_members_org_user" json:"user_id"`
	GithubMembershipActive bool       `gorm:"default:false" json:"github_membership_active"`
	LastSyncAt             *time.Time `json:"last_sync_at"`
	JoinedAt               time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"joined_at"`

	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (m *OrganizationMember) TableName() string {
	return "organization_members"
}
