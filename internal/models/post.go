package models

import (
	"time"

	"gorm.io/gorm"
)

// Media types accepted on posts and stories.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// Post is a user's feed entry with optional image or video.
type Post struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string    `gorm:"type:uuid;not null;index" json:"userId"`
	Description string    `gorm:"type:text" json:"description"`
	MediaURL    string    `json:"mediaUrl,omitempty"`
	MediaKey    string    `json:"-"`
	MediaType   string    `gorm:"size:10" json:"mediaType,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ReactionKind is one of the fixed post reactions.
type ReactionKind string

const (
	ReactionYummy     ReactionKind = "yummy"
	ReactionDelicious ReactionKind = "delicious"
	ReactionTasty     ReactionKind = "tasty"
	ReactionLove      ReactionKind = "love"
	ReactionAmazing   ReactionKind = "amazing"
)

// ReactionKinds lists every valid kind in display order.
var ReactionKinds = []ReactionKind{
	ReactionYummy, ReactionDelicious, ReactionTasty, ReactionLove, ReactionAmazing,
}

var reactionEmoji = map[ReactionKind]string{
	ReactionYummy:     "😋",
	ReactionDelicious: "🤤",
	ReactionTasty:     "👅",
	ReactionLove:      "❤️",
	ReactionAmazing:   "🤩",
}

// Emoji returns the display emoji, or "" for an unknown kind.
func (k ReactionKind) Emoji() string {
	return reactionEmoji[k]
}

// Valid reports whether k is a member of the reaction enum.
func (k ReactionKind) Valid() bool {
	_, ok := reactionEmoji[k]
	return ok
}

// PostReaction is the single reaction a user holds on a post.
type PostReaction struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	PostID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_post_reactions_pair,priority:1" json:"postId"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_post_reactions_pair,priority:2;index" json:"userId"`
	Kind      string    `gorm:"size:20;not null" json:"kind"`
	Emoji     string    `gorm:"size:16" json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (r *PostReaction) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
