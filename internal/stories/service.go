// Package stories serves 24-hour stories and their view receipts.
package stories

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
	"github.com/feedora/backend/internal/social"
	"github.com/feedora/backend/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxCaptionRunes = 500

// Item is a story in the viewer's tray.
type Item struct {
	ID             string              `json:"id"`
	MediaURL       string              `json:"mediaUrl"`
	MediaType      string              `json:"mediaType"`
	Caption        string              `json:"caption"`
	CreatedAt      time.Time           `json:"createdAt"`
	ExpiresAt      time.Time           `json:"expiresAt"`
	Author         *models.UserSummary `json:"author"`
	ViewCount      int64               `json:"viewCount"`
	ViewedByCaller bool                `json:"viewedByCaller"`
}

// Viewer is one receipt on the owner's view list.
type Viewer struct {
	User     *models.UserSummary `json:"user"`
	ViewedAt time.Time           `json:"viewedAt"`
}

// Service creates stories and tracks who viewed them. Expiry is handled by
// CleanupService.
type Service struct {
	db       *gorm.DB
	media    storage.MediaStore
	notifier social.Publisher
	now      func() time.Time
}

// NewService wires stories. notifier may be nil.
func NewService(db *gorm.DB, media storage.MediaStore, notifier social.Publisher) *Service {
	return &Service{db: db, media: media, notifier: notifier, now: time.Now}
}

// Create stores a story that expires after models.StoryTTL and tells the
// author's followers.
func (s *Service) Create(ctx context.Context, p auth.Principal, caption string, up storage.Upload) (*Item, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}
	caption = strings.TrimSpace(caption)
	if utf8.RuneCountInString(caption) > maxCaptionRunes {
		return nil, apperrors.Invalidf("caption exceeds %d characters", maxCaptionRunes)
	}
	if s.media == nil {
		return nil, apperrors.Invalidf("media uploads are disabled")
	}

	up.Folder, up.UserID = storage.FolderStories, p.UserID
	res, err := s.media.Put(ctx, up)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	story := &models.Story{
		UserID:    p.UserID,
		MediaURL:  res.URL,
		MediaKey:  res.Key,
		MediaType: string(res.MediaType),
		Caption:   caption,
		ExpiresAt: now.Add(models.StoryTTL),
	}
	if err := s.db.WithContext(ctx).Create(story).Error; err != nil {
		if derr := s.media.Delete(ctx, res.Key); derr != nil {
			logger.WarnWithFields("Failed to delete orphaned story media", derr, zap.String("media_key", res.Key))
		}
		return nil, fmt.Errorf("create story: %w", err)
	}

	if s.notifier != nil {
		_, err := s.notifier.Publish(ctx, notifications.Event{
			Sender:    p.UserID,
			Type:      models.NotificationNewStory,
			Content:   fmt.Sprintf("<b>%s</b> posted a story", p.Name),
			RelatedID: story.ID,
		})
		if err != nil {
			logger.WarnWithFields("Failed to announce new story", err, zap.String("story_id", story.ID))
		}
	}

	items, err := s.decorate(ctx, p, []models.Story{*story})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// List returns the unexpired stories of the caller and of everyone the
// caller follows, newest first.
func (s *Service) List(ctx context.Context, p auth.Principal) ([]Item, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}

	followees := s.db.Model(&models.Follow{}).Select("followee_id").Where("follower_id = ?", p.UserID)

	var rows []models.Story
	err := s.db.WithContext(ctx).Preload("User").
		Where("expires_at > ?", s.now().UTC()).
		Where(s.db.Where("user_id = ?", p.UserID).Or("user_id IN (?)", followees)).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	return s.decorate(ctx, p, rows)
}

type viewCount struct {
	StoryID string
	N       int64
}

func (s *Service) decorate(ctx context.Context, p auth.Principal, rows []models.Story) ([]Item, error) {
	items := make([]Item, 0, len(rows))
	if len(rows) == 0 {
		return items, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	var counts []viewCount
	err := s.db.WithContext(ctx).Model(&models.StoryView{}).
		Select("story_id, COUNT(*) AS n").
		Where("story_id IN ?", ids).
		Group("story_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count story views: %w", err)
	}
	byStory := make(map[string]int64, len(counts))
	for _, c := range counts {
		byStory[c.StoryID] = c.N
	}

	var seen []string
	err = s.db.WithContext(ctx).Model(&models.StoryView{}).
		Where("viewer_id = ? AND story_id IN ?", p.UserID, ids).
		Pluck("story_id", &seen).Error
	if err != nil {
		return nil, fmt.Errorf("caller story views: %w", err)
	}
	viewed := make(map[string]bool, len(seen))
	for _, id := range seen {
		viewed[id] = true
	}

	for _, r := range rows {
		items = append(items, Item{
			ID:             r.ID,
			MediaURL:       r.MediaURL,
			MediaType:      r.MediaType,
			Caption:        r.Caption,
			CreatedAt:      r.CreatedAt,
			ExpiresAt:      r.ExpiresAt,
			Author:         r.User.Summary(),
			ViewCount:      byStory[r.ID],
			ViewedByCaller: viewed[r.ID],
		})
	}
	return items, nil
}

func (s *Service) live(tx *gorm.DB, id string) (*models.Story, error) {
	var story models.Story
	err := tx.Where("id = ?", id).First(&story).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFoundf("story")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup story: %w", err)
	}
	if story.Expired(s.now().UTC()) {
		return nil, apperrors.NotFoundf("story")
	}
	return &story, nil
}

// View records that the caller opened a story. It reports whether a new
// receipt was written; repeat views and the owner's own views are not.
func (s *Service) View(ctx context.Context, p auth.Principal, id string) (bool, error) {
	if err := p.Require(); err != nil {
		return false, err
	}
	story, err := s.live(s.db.WithContext(ctx), id)
	if err != nil {
		return false, err
	}
	if story.UserID == p.UserID {
		return false, nil
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.StoryView{StoryID: id, ViewerID: p.UserID})
	if res.Error != nil {
		return false, fmt.Errorf("record story view: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Views lists who viewed the caller's story, most recent first.
func (s *Service) Views(ctx context.Context, p auth.Principal, id string) ([]Viewer, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}
	story, err := s.live(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if story.UserID != p.UserID {
		return nil, apperrors.New(apperrors.ErrNotOwner, "only the author can see story views")
	}

	var rows []models.StoryView
	err = s.db.WithContext(ctx).Preload("Viewer").
		Where("story_id = ?", id).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list story views: %w", err)
	}

	out := make([]Viewer, 0, len(rows))
	for _, v := range rows {
		out = append(out, Viewer{User: v.Viewer.Summary(), ViewedAt: v.CreatedAt})
	}
	return out, nil
}
