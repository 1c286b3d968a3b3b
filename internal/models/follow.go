package models

import (
	"time"

	"gorm.io/gorm"
)

// Follow is a directed edge: FollowerID follows FolloweeID.
type Follow struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	FolloweeID string    `gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair,priority:1" json:"followeeId"`
	FollowerID string    `gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair,priority:2;index" json:"followerId"`
	CreatedAt  time.Time `json:"createdAt"`

	Followee *User `gorm:"foreignKey:FolloweeID;constraint:OnDelete:CASCADE" json:"-"`
	Follower *User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	ensureID(&f.ID)
	return nil
}
