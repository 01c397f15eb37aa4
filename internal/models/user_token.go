package models

import (
	"time"
)

// UserToken stores a user's GitHub OAuth access token, encrypted at rest.
// One row per (user, provider); refreshed tokens overwrite in place.
type UserToken struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;uniqueIndex:idx_user_tokens_user_provider" json:"user_id"`
	Provider    string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_user_tokens_user_provider" json:"provider"`
	AccessToken string     `gorm:"type:text;not null" json:"-"`
	Scope       string     `gorm:"type:varchar(255)" json:"scope"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (t *UserToken) TableName() string {
	return "user_tokens"
}
