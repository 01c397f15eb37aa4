package models

import (
	"time"
)

// Project mirrors a GitHub repository. GithubRepositoryID is globally unique
// across all organizations and is the upsert key; projects are never deleted
// by reconciliation, removal from an installation is only logged.
type Project struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	OrganizationID     uint      `gorm:"not null;index" json:"organization_id"`
	GithubRepositoryID int64     `gorm:"uniqueIndex;not null" json:"github_repository_id"`
	RepositoryName     string    `gorm:"type:varchar(255);not null" json:"repository_name"`
	RepositoryURL      string    `gorm:"type:varchar(500)" json:"repository_url"`
	Description        string    `gorm:"type:text" json:"description"`
	DefaultBranch      string    `gorm:"type:varchar(255)" json:"default_branch"`
	IsPrivate          bool      `gorm:"default:false" json:"is_private"`
	Language           *string   `gorm:"type:varchar(100)" json:"language"`
	Stars              int       `gorm:"default:0" json:"stars"`
	Forks              int       `gorm:"default:0" json:"forks"`
	ModuleGraph        JSON      `gorm:"type:jsonb" json:"module_graph"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Workflows    []Workflow   `gorm:"foreignKey:ProjectID" json:"workflows,omitempty"`
}

func (p *Project) TableName() string {
	return "projects"
}
