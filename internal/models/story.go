package models

import (
	"time"

	"gorm.io/gorm"
)

// StoryTTL is how long a story stays visible.
const StoryTTL = 24 * time.Hour

// Story is ephemeral media that expires after StoryTTL.
type Story struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"userId"`
	MediaURL  string    `gorm:"not null" json:"mediaUrl"`
	MediaKey  string    `json:"-"`
	MediaType string    `gorm:"size:10" json:"mediaType"`
	Caption   string    `gorm:"size:500" json:"caption"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
}

func (s *Story) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = tx.NowFunc().Add(StoryTTL)
	}
	return nil
}

// Expired reports whether the story is past its expiry at now.
func (s *Story) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// StoryView records that a viewer opened a story, once per pair.
type StoryView struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	StoryID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_story_views_pair,priority:1" json:"storyId"`
	ViewerID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_story_views_pair,priority:2" json:"viewerId"`
	CreatedAt time.Time `json:"viewedAt"`

	Story  *Story `gorm:"foreignKey:StoryID;constraint:OnDelete:CASCADE" json:"-"`
	Viewer *User  `gorm:"foreignKey:ViewerID;constraint:OnDelete:CASCADE" json:"viewer,omitempty"`
}

func (v *StoryView) BeforeCreate(tx *gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
