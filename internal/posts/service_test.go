package posts

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/feedora/backend/internal/auth"
	"github.com/feedora/backend/internal/comments"
	"github.com/feedora/backend/internal/database/dbtest"
	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/notifications"
	"github.com/feedora/backend/internal/social"
	"github.com/feedora/backend/internal/storage"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type PostsTestSuite struct {
	suite.Suite
	db        *gorm.DB
	ctx       context.Context
	dir       string
	svc       *Service
	reactions *social.ReactionService
	comments  *comments.Service

	ana, bo, cy *models.User
}

func (s *PostsTestSuite) SetupTest() {
	s.db = dbtest.New(s.T())
	s.ctx = context.Background()
	s.dir = s.T().TempDir()

	media, err := storage.NewLocalStore(s.dir, "/media")
	s.Require().NoError(err)

	notifier := notifications.NewService(s.db)
	s.reactions = social.NewReactionService(s.db, notifier)
	s.comments = comments.NewService(s.db, social.NewCommentLikeService(s.db), s.reactions, notifier)
	s.svc = NewService(s.db, media, s.reactions, notifier)

	s.ana = dbtest.CreateUser(s.T(), s.db, "Ana")
	s.bo = dbtest.CreateUser(s.T(), s.db, "Bo")
	s.cy = dbtest.CreateUser(s.T(), s.db, "Cy")
}

func (s *PostsTestSuite) as(u *models.User) auth.Principal {
	return auth.Principal{UserID: u.ID, Name: u.Name}
}

func (s *PostsTestSuite) count(model any, where string, args ...any) int64 {
	var n int64
	s.Require().NoError(s.db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func (s *PostsTestSuite) TestCreateWithMediaNotifiesEveryoneElse() {
	item, err := s.svc.Create(s.ctx, s.as(s.ana), CreateInput{
		Description: " tacos ",
		Media:       &storage.Upload{Filename: "tacos.png", Body: bytes.NewReader([]byte("png"))},
	})
	s.Require().NoError(err)
	s.Equal("tacos", item.Description)
	s.Equal(models.MediaImage, item.MediaType)
	s.Contains(item.MediaURL, "/media/posts/")
	s.Equal(s.ana.ID, item.Author.ID)
	s.Zero(item.Reactions.Total)

	s.Equal(int64(2), s.count(&models.Notification{}, "type = ? AND related_id = ?", models.NotificationNewPost, item.ID))
	s.Zero(s.count(&models.Notification{}, "recipient_id = ?", s.ana.ID))
}

func (s *PostsTestSuite) TestCreateValidation() {
	_, err := s.svc.Create(s.ctx, s.as(s.ana), CreateInput{Description: "  "})
	s.ErrorIs(err, apperrors.ErrInvalid)

	_, err = s.svc.Create(s.ctx, s.as(s.ana), CreateInput{
		Description: "doc",
		Media:       &storage.Upload{Filename: "recipe.pdf", Body: bytes.NewReader(nil)},
	})
	s.ErrorIs(err, apperrors.ErrInvalid)

	_, err = s.svc.Create(s.ctx, auth.Principal{}, CreateInput{Description: "hi"})
	s.ErrorIs(err, apperrors.ErrUnauthenticated)

	s.Zero(s.count(&models.Post{}, "1 = 1"))
}

func (s *PostsTestSuite) TestFeedNewestFirstWithCallerCounts() {
	var ids []string
	for _, d := range []string{"one", "two", "three"} {
		item, err := s.svc.Create(s.ctx, s.as(s.ana), CreateInput{Description: d})
		s.Require().NoError(err)
		ids = append(ids, item.ID)
	}
	_, _, err := s.reactions.Toggle(s.ctx, s.as(s.bo), ids[2], "tasty")
	s.Require().NoError(err)
	_, err = s.comments.Add(s.ctx, s.as(s.cy), ids[2], "yum")
	s.Require().NoError(err)

	feed, err := s.svc.List(s.ctx, s.as(s.bo), "", 0, 2)
	s.Require().NoError(err)
	s.Equal(int64(3), feed.TotalCount)
	s.True(feed.HasMore)
	s.Equal(2, feed.NextOffset)
	s.Require().Len(feed.Items, 2)
	s.Equal(ids[2], feed.Items[0].ID)
	s.Equal("tasty", feed.Items[0].Reactions.CallerKind)
	s.Equal(int64(1), feed.Items[0].CommentCount)

	rest, err := s.svc.List(s.ctx, s.as(s.bo), "", feed.NextOffset, 2)
	s.Require().NoError(err)
	s.False(rest.HasMore)
	s.Require().Len(rest.Items, 1)
	s.Equal(ids[0], rest.Items[0].ID)

	mine, err := s.svc.List(s.ctx, s.as(s.bo), s.bo.ID, 0, 0)
	s.Require().NoError(err)
	s.Zero(mine.TotalCount)
	s.Empty(mine.Items)
}

func (s *PostsTestSuite) TestGetMissing() {
	_, err := s.svc.Get(s.ctx, s.as(s.ana), models.NewID())
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *PostsTestSuite) TestDeleteCascades() {
	item, err := s.svc.Create(s.ctx, s.as(s.ana), CreateInput{
		Description: "soup",
		Media:       &storage.Upload{Filename: "soup.mp4", Body: bytes.NewReader([]byte("mp4"))},
	})
	s.Require().NoError(err)

	var post models.Post
	s.Require().NoError(s.db.First(&post, "id = ?", item.ID).Error)
	path := filepath.Join(s.dir, filepath.FromSlash(post.MediaKey))
	s.FileExists(path)

	_, _, err = s.reactions.Toggle(s.ctx, s.as(s.bo), item.ID, "love")
	s.Require().NoError(err)
	_, err = s.comments.Add(s.ctx, s.as(s.cy), item.ID, "warm")
	s.Require().NoError(err)

	err = s.svc.Delete(s.ctx, s.as(s.bo), item.ID)
	s.ErrorIs(err, apperrors.ErrNotOwner)

	s.Require().NoError(s.svc.Delete(s.ctx, s.as(s.ana), item.ID))

	s.Zero(s.count(&models.Post{}, "id = ?", item.ID))
	s.Zero(s.count(&models.PostReaction{}, "post_id = ?", item.ID))
	s.Zero(s.count(&models.Comment{}, "post_id = ?", item.ID))
	s.Zero(s.count(&models.Notification{}, "related_id = ?", item.ID))
	_, statErr := os.Stat(path)
	s.True(os.IsNotExist(statErr))

	err = s.svc.Delete(s.ctx, s.as(s.ana), item.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func TestPostsTestSuite(t *testing.T) {
	suite.Run(t, new(PostsTestSuite))
}
