package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a text comment on a post. Reactions live in PostReaction.
type Comment struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	PostID    string    `gorm:"type:uuid;not null;index:idx_comments_post_created,priority:1" json:"postId"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"userId"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CommentLike marks that a user likes a comment.
type CommentLike struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CommentID string    `gorm:"type:uuid;not null;uniqueIndex:idx_comment_likes_pair,priority:1" json:"commentId"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_comment_likes_pair,priority:2" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`

	Comment *Comment `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (l *CommentLike) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
