package models

import (
	"time"
)

// User is a local principal. AuthID comes from the session provider; the
// GitHub fields are nullable and filled in lazily, either when the user links
// their GitHub account or when they are discovered as an organization member.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AuthID         string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"auth_id"`
	GithubID       *int64    `gorm:"uniqueIndex" json:"github_id"`
	GithubUsername *string   `gorm:"type:varchar(255)" json:"github_username"`
	GithubEmail    *string   `gorm:"type:varchar(255)" json:"github_email"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Memberships []OrganizationMember `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
	Tokens      []UserToken          `gorm:"foreignKey:UserID" json:"tokens,omitempty"`
}

func (u *User) TableName() string {
	return "users"
}
