// Package comments stores text comments on posts and pages through them.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/feedora/backend/internal/auth"
	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/notifications"
	"github.com/feedora/backend/internal/pagination"
	"github.com/feedora/backend/internal/social"
	"gorm.io/gorm"
)

// MaxTextRunes bounds a comment's length after trimming.
const MaxTextRunes = 2000

// FirstPageReactions caps the reaction rows returned with the first page.
const FirstPageReactions = 100

// PageBounds limits ListComments page sizes.
var PageBounds = pagination.Bounds{Default: 10, Max: 100}

// Item is a comment as rendered under a post.
type Item struct {
	ID            string              `json:"id"`
	PostID        string              `json:"postId"`
	Text          string              `json:"text"`
	CreatedAt     time.Time           `json:"createdAt"`
	Author        *models.UserSummary `json:"author"`
	LikeCount     int64               `json:"likeCount"`
	LikedByCaller bool                `json:"likedByCaller"`
}

// Page is one offset window of a post's comments. Reactions is set, possibly
// empty, on the first page and left nil on the rest.
type Page struct {
	Items      []Item            `json:"items"`
	Reactions  *[]social.Reactor `json:"reactions,omitempty"`
	TotalCount int64             `json:"totalCount"`
	HasMore    bool              `json:"hasMore"`
	NextOffset int               `json:"nextOffset"`
}

// Service adds, removes and pages comments on posts. New comments notify the
// post's author.
type Service struct {
	db        *gorm.DB
	likes     *social.CommentLikeService
	reactions *social.ReactionService
	notifier  social.Publisher
}

// NewService wires comment storage. notifier may be nil.
func NewService(db *gorm.DB, likes *social.CommentLikeService, reactions *social.ReactionService, notifier social.Publisher) *Service {
	return &Service{db: db, likes: likes, reactions: reactions, notifier: notifier}
}

// Add stores a comment on postID and notifies the post author.
func (s *Service) Add(ctx context.Context, p auth.Principal, postID, text string) (*models.Comment, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Invalidf("comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxTextRunes {
		return nil, apperrors.Invalidf("comment text exceeds %d characters", MaxTextRunes)
	}

	var post models.Post
	err := s.db.WithContext(ctx).Select("id, user_id").Where("id = ?", postID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFoundf("post")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup post: %w", err)
	}

	c := &models.Comment{PostID: postID, UserID: p.UserID, Text: text}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	if s.notifier != nil {
		_, err := s.notifier.Publish(ctx, notifications.Event{
			Sender:     p.UserID,
			Recipients: []string{post.UserID},
			Type:       models.NotificationNewComment,
			Content:    fmt.Sprintf("<b>%s</b> commented on your post", p.Name),
			RelatedID:  postID,
		})
		if err != nil {
			logger.WarnWithFields("Failed to notify post author of comment", err, logger.WithPostID(postID))
		}
	}
	return c, nil
}

// Delete removes a comment and its likes. The comment author and the post
// author may delete it.
func (s *Service) Delete(ctx context.Context, p auth.Principal, commentID string) error {
	if err := p.Require(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Comment
		err := tx.Preload("Post").Where("id = ?", commentID).First(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFoundf("comment")
		}
		if err != nil {
			return fmt.Errorf("lookup comment: %w", err)
		}

		if c.UserID != p.UserID && (c.Post == nil || c.Post.UserID != p.UserID) {
			return apperrors.New(apperrors.ErrNotOwner, "you can only delete your own comments")
		}

		if err := tx.Where("comment_id = ?", c.ID).Delete(&models.CommentLike{}).Error; err != nil {
			return fmt.Errorf("delete comment likes: %w", err)
		}
		if err := tx.Delete(&c).Error; err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		return nil
	})
}

// List returns a newest-first window of a post's comments. The first window
// (offset 0) also carries the post's most recent reactions.
func (s *Service) List(ctx context.Context, p auth.Principal, postID string, offset, limit int) (*Page, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, apperrors.Invalidf("offset must not be negative")
	}
	cur := pagination.NewCursor(offset, limit, PageBounds)

	ok, err := social.ExistsIn("posts")(s.db.WithContext(ctx), postID)
	if err != nil {
		return nil, fmt.Errorf("lookup post: %w", err)
	}
	if !ok {
		return nil, apperrors.NotFoundf("post")
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}

	var rows []models.Comment
	err = s.db.WithContext(ctx).Preload("User").
		Where("post_id = ?", postID).
		Order("created_at DESC").Order("id DESC").
		Offset(cur.Offset).Limit(cur.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, c := range rows {
		ids = append(ids, c.ID)
	}
	counts, err := s.likes.Counts(ctx, ids)
	if err != nil {
		return nil, err
	}
	liked, err := s.likes.LikedBy(ctx, p.UserID, ids)
	if err != nil {
		return nil, err
	}

	page := &Page{Items: make([]Item, 0, len(rows)), TotalCount: total}
	for _, c := range rows {
		page.Items = append(page.Items, Item{
			ID:            c.ID,
			PostID:        c.PostID,
			Text:          c.Text,
			CreatedAt:     c.CreatedAt,
			Author:        c.User.Summary(),
			LikeCount:     counts[c.ID],
			LikedByCaller: liked[c.ID],
		})
	}
	page.HasMore, page.NextOffset = cur.Next(len(rows), total)

	if cur.Offset == 0 {
		reactors, err := s.reactions.Reactors(ctx, postID, FirstPageReactions)
		if err != nil {
			return nil, err
		}
		page.Reactions = &reactors
	}
	return page, nil
}

// PurgePost deletes every comment on postID along with their likes. It
// runs inside the caller's transaction.
func PurgePost(tx *gorm.DB, postID string) error {
	sub := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)
	if err := tx.Where("comment_id IN (?)", sub).Delete(&models.CommentLike{}).Error; err != nil {
		return fmt.Errorf("delete comment likes: %w", err)
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	return nil
}
