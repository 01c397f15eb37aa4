package models

import (
	"time"
)

const (
	SyncTypeInstallation = "installation_sync"
	SyncTypeMembers      = "members_sync"
	SyncTypeLifecycle    = "lifecycle_event"
)

const (
	SyncStatusSuccess = "success"
	SyncStatusPartial = "partial"
	SyncStatusFailed  = "failed"
)

// SyncLog is the append-only audit trail of reconciliation attempts. Rows are
// never updated or deleted.
type SyncLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	SyncType       string    `gorm:"type:varchar(50);not null" json:"sync_type"`
	Status         string    `gorm:"type:varchar(20);not null" json:"status"`
	Details        JSON      `gorm:"type:jsonb" json:"details"`
	Error          *string   `gorm:"type:text" json:"error"`
	CreatedAt      time.Time `json:"created_at"`
}

func (l *SyncLog) TableName() string {
	return "github_sync_logs"
}

// PendingInstallation records a just-created installation before the first
// reconciliation lands, so the dashboard can poll for it. Inserts are
// idempotent on the external org id.
type PendingInstallation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	GithubOrgID int64     `gorm:"uniqueIndex;not null" json:"github_org_id"`
	OrgName     string    `gorm:"type:varchar(255);not null" json:"org_name"`
	InstalledAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"installed_at"`
}

func (p *PendingInstallation) TableName() string {
	return "pending_installations"
}
