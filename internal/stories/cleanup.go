package stories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/metrics"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/notifications"
	"github.com/feedora/backend/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CleanupReport summarizes one cleanup pass.
type CleanupReport struct {
	Stories int
	Views   int64
	Media   int
	Errors  int
}

// CleanupService periodically deletes expired stories, their views and
// their media.
type CleanupService struct {
	db       *gorm.DB
	media    storage.MediaStore
	interval time.Duration
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCleanupService(db *gorm.DB, media storage.MediaStore, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupService{db: db, media: media, interval: interval, now: time.Now}
}

// Start runs a pass immediately and then every interval until Stop.
func (s *CleanupService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	logger.Log.Info("Starting story cleanup service", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight pass to finish.
func (s *CleanupService) Stop() {
	if s.cancel == nil {
		return
	}
	logger.Log.Info("Stopping story cleanup service")
	s.cancel()
	s.wg.Wait()
}

// RunOnce deletes every story expired at the current time. Each story is
// removed in its own transaction so one failure does not block the rest.
func (s *CleanupService) RunOnce(ctx context.Context) CleanupReport {
	start := time.Now()
	var report CleanupReport

	var expired []models.Story
	err := s.db.WithContext(ctx).Where("expires_at <= ?", s.now().UTC()).Find(&expired).Error
	if err != nil {
		logger.ErrorWithFields("Failed to query expired stories", err)
		report.Errors++
		return report
	}
	if len(expired) == 0 {
		logger.Log.Debug("No expired stories to clean up")
		return report
	}

	for i := range expired {
		story := &expired[i]
		views, err := s.purge(ctx, story)
		if err != nil {
			logger.ErrorWithFields("Failed to delete expired story", err, zap.String("story_id", story.ID))
			report.Errors++
			continue
		}
		report.Stories++
		report.Views += views

		if story.MediaKey != "" && s.media != nil {
			if err := s.media.Delete(ctx, story.MediaKey); err != nil {
				logger.WarnWithFields("Failed to delete story media", err, zap.String("story_id", story.ID))
			} else {
				report.Media++
			}
		}
	}

	metrics.Get().StoriesExpiredTotal.Add(float64(report.Stories))
	logger.Log.Info("Story cleanup completed",
		zap.Int("stories_deleted", report.Stories),
		zap.Int64("views_deleted", report.Views),
		zap.Int("media_deleted", report.Media),
		zap.Int("errors", report.Errors),
		zap.Duration("duration", time.Since(start)),
	)
	return report
}

func (s *CleanupService) purge(ctx context.Context, story *models.Story) (int64, error) {
	var views int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("story_id = ?", story.ID).Delete(&models.StoryView{})
		if res.Error != nil {
			return fmt.Errorf("delete views: %w", res.Error)
		}
		views = res.RowsAffected
		if err := notifications.PurgeRelated(tx, story.ID); err != nil {
			return err
		}
		return tx.Delete(story).Error
	})
	return views, err
}
