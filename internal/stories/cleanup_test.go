package stories

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/feedora/backend/internal/auth"
	"github.com/feedora/backend/internal/database/dbtest"
	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/notifications"
	"github.com/feedora/backend/internal/storage"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type StoriesTestSuite struct {
	suite.Suite
	db    *gorm.DB
	ctx   context.Context
	dir   string
	media *storage.LocalStore
	svc   *Service
	clock time.Time

	author, follower, stranger *models.User
}

func (s *StoriesTestSuite) SetupTest() {
	s.db = dbtest.New(s.T())
	s.ctx = context.Background()
	s.dir = s.T().TempDir()

	var err error
	s.media, err = storage.NewLocalStore(s.dir, "/media")
	s.Require().NoError(err)

	s.clock = time.Now().UTC()
	s.svc = NewService(s.db, s.media, notifications.NewService(s.db))
	s.svc.now = func() time.Time { return s.clock }

	s.author = dbtest.CreateUser(s.T(), s.db, "Author")
	s.follower = dbtest.CreateUser(s.T(), s.db, "Follower")
	s.stranger = dbtest.CreateUser(s.T(), s.db, "Stranger")
	dbtest.Follow(s.T(), s.db, s.follower.ID, s.author.ID)
}

func (s *StoriesTestSuite) as(u *models.User) auth.Principal {
	return auth.Principal{UserID: u.ID, Name: u.Name}
}

func (s *StoriesTestSuite) post(u *models.User, caption string) *Item {
	item, err := s.svc.Create(s.ctx, s.as(u), caption, storage.Upload{
		Filename: "story.jpg",
		Body:     bytes.NewReader([]byte("jpg")),
	})
	s.Require().NoError(err)
	return item
}

func (s *StoriesTestSuite) TestCreateNotifiesFollowers() {
	item := s.post(s.author, " brunch ")
	s.Equal("brunch", item.Caption)
	s.WithinDuration(s.clock.Add(models.StoryTTL), item.ExpiresAt, time.Second)

	var rows []models.Notification
	s.Require().NoError(s.db.Where("related_id = ?", item.ID).Find(&rows).Error)
	s.Require().Len(rows, 1)
	s.Equal(s.follower.ID, rows[0].RecipientID)
}

func (s *StoriesTestSuite) TestCreateRejectsUnsupportedMedia() {
	_, err := s.svc.Create(s.ctx, s.as(s.author), "", storage.Upload{Filename: "a.txt", Body: bytes.NewReader(nil)})
	s.ErrorIs(err, apperrors.ErrInvalid)
}

func (s *StoriesTestSuite) TestListShowsOwnAndFollowedUnexpired() {
	mine := s.post(s.follower, "mine")
	theirs := s.post(s.author, "theirs")
	s.post(s.stranger, "hidden")

	items, err := s.svc.List(s.ctx, s.as(s.follower))
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal(theirs.ID, items[0].ID)
	s.Equal(mine.ID, items[1].ID)

	s.clock = s.clock.Add(models.StoryTTL + time.Minute)
	items, err = s.svc.List(s.ctx, s.as(s.follower))
	s.Require().NoError(err)
	s.Empty(items)
}

func (s *StoriesTestSuite) TestViewRecordedOnceAndNotForOwner() {
	item := s.post(s.author, "")

	recorded, err := s.svc.View(s.ctx, s.as(s.follower), item.ID)
	s.Require().NoError(err)
	s.True(recorded)

	recorded, err = s.svc.View(s.ctx, s.as(s.follower), item.ID)
	s.Require().NoError(err)
	s.False(recorded)

	recorded, err = s.svc.View(s.ctx, s.as(s.author), item.ID)
	s.Require().NoError(err)
	s.False(recorded)

	views, err := s.svc.Views(s.ctx, s.as(s.author), item.ID)
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal(s.follower.ID, views[0].User.ID)

	_, err = s.svc.Views(s.ctx, s.as(s.follower), item.ID)
	s.ErrorIs(err, apperrors.ErrNotOwner)

	items, err := s.svc.List(s.ctx, s.as(s.follower))
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(int64(1), items[0].ViewCount)
	s.True(items[0].ViewedByCaller)
}

func (s *StoriesTestSuite) TestViewExpiredIsNotFound() {
	item := s.post(s.author, "")
	s.clock = s.clock.Add(models.StoryTTL)

	_, err := s.svc.View(s.ctx, s.as(s.follower), item.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.svc.View(s.ctx, s.as(s.follower), models.NewID())
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *StoriesTestSuite) TestCleanupRemovesExpiredStories() {
	old := s.post(s.author, "old")
	_, err := s.svc.View(s.ctx, s.as(s.follower), old.ID)
	s.Require().NoError(err)
	fresh := s.post(s.author, "fresh")

	s.Require().NoError(s.db.Model(&models.Story{}).Where("id = ?", old.ID).
		Update("expires_at", s.clock.Add(-time.Minute)).Error)

	var oldStory models.Story
	s.Require().NoError(s.db.First(&oldStory, "id = ?", old.ID).Error)
	path := filepath.Join(s.dir, filepath.FromSlash(oldStory.MediaKey))
	s.FileExists(path)

	cleanup := NewCleanupService(s.db, s.media, time.Hour)
	cleanup.now = func() time.Time { return s.clock }
	report := cleanup.RunOnce(s.ctx)

	s.Equal(CleanupReport{Stories: 1, Views: 1, Media: 1}, report)

	var left []models.Story
	s.Require().NoError(s.db.Find(&left).Error)
	s.Require().Len(left, 1)
	s.Equal(fresh.ID, left[0].ID)

	var n int64
	s.Require().NoError(s.db.Model(&models.Notification{}).Where("related_id = ?", old.ID).Count(&n).Error)
	s.Zero(n)
	_, statErr := os.Stat(path)
	s.True(os.IsNotExist(statErr))

	s.Equal(CleanupReport{}, cleanup.RunOnce(s.ctx))
}

func (s *StoriesTestSuite) TestCleanupStartStop() {
	cleanup := NewCleanupService(s.db, nil, time.Hour)
	cleanup.Start(s.ctx)
	cleanup.Stop()
	cleanup.Stop()
}

func TestStoriesTestSuite(t *testing.T) {
	suite.Run(t, new(StoriesTestSuite))
}
