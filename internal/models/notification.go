package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationType enumerates the events that produce notifications.
type NotificationType string

const (
	NotificationNewPost     NotificationType = "new_post"
	NotificationNewReaction NotificationType = "new_reaction"
	NotificationNewComment  NotificationType = "new_comment"
	NotificationNewStory    NotificationType = "new_story"
	NotificationNewRecipe   NotificationType = "new_recipe"
	NotificationNewFollower NotificationType = "new_follower"
	NotificationNewMessage  NotificationType = "new_message"
	NotificationTest        NotificationType = "test"
)

// Notification is one delivered notice. RelatedID points at whatever entity
// triggered it (post, comment, recipe, story or user), so it carries no FK.
type Notification struct {
	ID          string           `gorm:"primaryKey;type:uuid" json:"id"`
	SenderID    string           `gorm:"type:uuid;not null;index:idx_notifications_dedup,priority:1" json:"senderId"`
	RecipientID string           `gorm:"type:uuid;not null;index:idx_notifications_dedup,priority:2;index:idx_notifications_recipient,priority:1" json:"recipientId"`
	Type        NotificationType `gorm:"size:32;not null;index:idx_notifications_dedup,priority:3" json:"type"`
	Content     string           `gorm:"type:text" json:"content"`
	RelatedID   string           `gorm:"size:64;index:idx_notifications_dedup,priority:4" json:"relatedId"`
	IsRead      bool             `gorm:"not null;default:false" json:"isRead"`
	CreatedAt   time.Time        `gorm:"index:idx_notifications_dedup,priority:5;index:idx_notifications_recipient,priority:2" json:"createdAt"`

	Sender    *User `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender,omitempty"`
	Recipient *User `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE" json:"-"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
