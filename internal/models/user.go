package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a Feedora account.
type User struct {
	ID              string     `gorm:"primaryKey;type:uuid" json:"id"`
	Name            string     `gorm:"size:100;not null" json:"name"`
	Email           string     `gorm:"size:255;uniqueIndex;not null" json:"email,omitempty"`
	PasswordHash    string     `gorm:"not null" json:"-"`
	Bio             string     `gorm:"type:text" json:"bio"`
	ProfileImageURL string     `json:"profileImageUrl"`
	ProfileImageKey string     `json:"-"`
	BannerImageURL  string     `json:"bannerImageUrl"`
	BannerImageKey  string     `json:"-"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// UserSummary is the public slice of a user embedded in other payloads.
type UserSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// Summary returns the public summary, or nil for a nil user.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, ProfileImageURL: u.ProfileImageURL}
}

// PasswordReset is a single-use reset token.
type PasswordReset struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"userId"`
	Token     string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
	Used      bool      `gorm:"not null;default:false" json:"used"`
	CreatedAt time.Time `json:"createdAt"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (p *PasswordReset) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
