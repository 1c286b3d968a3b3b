// Package posts implements the photo/video feed.
package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/feedora/backend/internal/auth"
	"github.com/feedora/backend/internal/comments"
	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/notifications"
	"github.com/feedora/backend/internal/pagination"
	"github.com/feedora/backend/internal/social"
	"github.com/feedora/backend/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxDescriptionRunes = 5000

// FeedBounds limits feed page sizes.
var FeedBounds = pagination.Bounds{Default: 20, Max: 50}

// Item is a post with the data a feed card needs.
type Item struct {
	ID           string                 `json:"id"`
	Description  string                 `json:"description"`
	MediaURL     string                 `json:"mediaUrl,omitempty"`
	MediaType    string                 `json:"mediaType,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	Author       *models.UserSummary    `json:"author"`
	Reactions    *social.ReactionCounts `json:"reactions"`
	CommentCount int64                  `json:"commentCount"`
}

// Feed is one offset window of posts.
type Feed struct {
	Items      []Item `json:"items"`
	TotalCount int64  `json:"totalCount"`
	HasMore    bool   `json:"hasMore"`
	NextOffset int    `json:"nextOffset"`
}

// CreateInput is a new post. Media is optional.
type CreateInput struct {
	Description string
	Media       *storage.Upload
}

// Service manages posts and builds the feed with per-post comment and
// reaction counts.
type Service struct {
	db        *gorm.DB
	media     storage.MediaStore
	reactions *social.ReactionService
	notifier  social.Publisher
}

// NewService wires the feed. media and notifier may be nil.
func NewService(db *gorm.DB, media storage.MediaStore, reactions *social.ReactionService, notifier social.Publisher) *Service {
	return &Service{db: db, media: media, reactions: reactions, notifier: notifier}
}

// Create stores a post and announces it to every other user.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Item, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}

	desc := strings.TrimSpace(in.Description)
	if desc == "" && in.Media == nil {
		return nil, apperrors.Invalidf("a description or media file is required")
	}
	if utf8.RuneCountInString(desc) > maxDescriptionRunes {
		return nil, apperrors.Invalidf("description exceeds %d characters", maxDescriptionRunes)
	}

	post := &models.Post{UserID: p.UserID, Description: desc}
	if in.Media != nil {
		if s.media == nil {
			return nil, apperrors.Invalidf("media uploads are disabled")
		}
		up := *in.Media
		up.Folder, up.UserID = storage.FolderPosts, p.UserID
		res, err := s.media.Put(ctx, up)
		if err != nil {
			return nil, err
		}
		post.MediaURL, post.MediaKey, post.MediaType = res.URL, res.Key, string(res.MediaType)
	}

	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		s.removeMedia(ctx, post.MediaKey)
		return nil, fmt.Errorf("create post: %w", err)
	}

	if s.notifier != nil {
		_, err := s.notifier.Publish(ctx, notifications.Event{
			Sender:    p.UserID,
			Type:      models.NotificationNewPost,
			Content:   fmt.Sprintf("<b>%s</b> shared a new post", p.Name),
			RelatedID: post.ID,
		})
		if err != nil {
			logger.WarnWithFields("Failed to announce new post", err, logger.WithPostID(post.ID))
		}
	}

	return s.Get(ctx, p, post.ID)
}

// Get loads one post with counts for the caller.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (*Item, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFoundf("post")
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	items, err := s.decorate(ctx, p, []models.Post{post})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// List returns posts newest first. A non-empty authorID restricts the feed to
// that user's posts.
func (s *Service) List(ctx context.Context, p auth.Principal, authorID string, offset, limit int) (*Feed, error) {
	cur := pagination.NewCursor(offset, limit, FeedBounds)

	byAuthor := func(db *gorm.DB) *gorm.DB {
		if authorID != "" {
			return db.Where("user_id = ?", authorID)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Scopes(byAuthor).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	var rows []models.Post
	err := s.db.WithContext(ctx).Scopes(byAuthor).Preload("User").
		Order("created_at DESC").Order("id DESC").
		Offset(cur.Offset).Limit(cur.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	items, err := s.decorate(ctx, p, rows)
	if err != nil {
		return nil, err
	}
	feed := &Feed{Items: items, TotalCount: total}
	feed.HasMore, feed.NextOffset = cur.Next(len(items), total)
	return feed, nil
}

type commentCount struct {
	PostID string
	N      int64
}

func (s *Service) decorate(ctx context.Context, p auth.Principal, rows []models.Post) ([]Item, error) {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	counts, err := s.reactions.CountsFor(ctx, p, ids)
	if err != nil {
		return nil, err
	}

	commentsByPost := make(map[string]int64, len(ids))
	if len(ids) > 0 {
		var cc []commentCount
		err := s.db.WithContext(ctx).Model(&models.Comment{}).
			Select("post_id, COUNT(*) AS n").
			Where("post_id IN ?", ids).
			Group("post_id").
			Scan(&cc).Error
		if err != nil {
			return nil, fmt.Errorf("count comments: %w", err)
		}
		for _, c := range cc {
			commentsByPost[c.PostID] = c.N
		}
	}

	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, Item{
			ID:           r.ID,
			Description:  r.Description,
			MediaURL:     r.MediaURL,
			MediaType:    r.MediaType,
			CreatedAt:    r.CreatedAt,
			Author:       r.User.Summary(),
			Reactions:    counts[r.ID],
			CommentCount: commentsByPost[r.ID],
		})
	}
	return items, nil
}

// Delete removes the caller's post with its reactions, comments, comment
// likes, notifications and media file.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	if err := p.Require(); err != nil {
		return err
	}

	var mediaKey string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		err := tx.Where("id = ?", id).First(&post).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFoundf("post")
		}
		if err != nil {
			return fmt.Errorf("lookup post: %w", err)
		}
		if post.UserID != p.UserID {
			return apperrors.New(apperrors.ErrNotOwner, "you can only delete your own posts")
		}

		if err := tx.Where("post_id = ?", id).Delete(&models.PostReaction{}).Error; err != nil {
			return fmt.Errorf("delete reactions: %w", err)
		}
		if err := comments.PurgePost(tx, id); err != nil {
			return err
		}
		if err := notifications.PurgeRelated(tx, id); err != nil {
			return err
		}
		if err := tx.Delete(&post).Error; err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		mediaKey = post.MediaKey
		return nil
	})
	if err != nil {
		return err
	}

	s.removeMedia(ctx, mediaKey)
	return nil
}

func (s *Service) removeMedia(ctx context.Context, key string) {
	if key == "" || s.media == nil {
		return
	}
	if err := s.media.Delete(ctx, key); err != nil {
		logger.WarnWithFields("Failed to delete post media", err, zap.String("media_key", key))
	}
}
