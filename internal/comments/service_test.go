package comments

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/feedora/backend/internal/auth"
	"github.com/feedora/backend/internal/database/dbtest"
	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/notifications"
	"github.com/feedora/backend/internal/social"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type CommentsTestSuite struct {
	suite.Suite
	db        *gorm.DB
	ctx       context.Context
	svc       *Service
	likes     *social.CommentLikeService
	reactions *social.ReactionService

	author, ana, bo *models.User
	post            *models.Post
}

func (s *CommentsTestSuite) SetupTest() {
	s.db = dbtest.New(s.T())
	s.ctx = context.Background()
	notifier := notifications.NewService(s.db)
	s.likes = social.NewCommentLikeService(s.db)
	s.reactions = social.NewReactionService(s.db, nil)
	s.svc = NewService(s.db, s.likes, s.reactions, notifier)

	s.author = dbtest.CreateUser(s.T(), s.db, "Author")
	s.ana = dbtest.CreateUser(s.T(), s.db, "Ana")
	s.bo = dbtest.CreateUser(s.T(), s.db, "Bo")
	s.post = dbtest.CreatePost(s.T(), s.db, s.author.ID, "pasta night")
}

func (s *CommentsTestSuite) as(u *models.User) auth.Principal {
	return auth.Principal{UserID: u.ID, Name: u.Name}
}

func (s *CommentsTestSuite) seedComments(n int) {
	for i := 0; i < n; i++ {
		_, err := s.svc.Add(s.ctx, s.as(s.ana), s.post.ID, "comment")
		s.Require().NoError(err)
	}
}

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func (s *CommentsTestSuite) TestAddTrimsAndNotifiesAuthor() {
	c, err := s.svc.Add(s.ctx, s.as(s.ana), s.post.ID, "  so good  ")
	s.Require().NoError(err)
	s.Equal("so good", c.Text)
	s.NotEmpty(c.ID)

	var n int64
	s.Require().NoError(s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND type = ? AND related_id = ?", s.author.ID, models.NotificationNewComment, s.post.ID).
		Count(&n).Error)
	s.Equal(int64(1), n)
}

func (s *CommentsTestSuite) TestAddValidation() {
	_, err := s.svc.Add(s.ctx, s.as(s.ana), s.post.ID, "   ")
	s.ErrorIs(err, apperrors.ErrInvalid)

	_, err = s.svc.Add(s.ctx, s.as(s.ana), s.post.ID, strings.Repeat("é", MaxTextRunes+1))
	s.ErrorIs(err, apperrors.ErrInvalid)

	_, err = s.svc.Add(s.ctx, s.as(s.ana), s.post.ID, strings.Repeat("é", MaxTextRunes))
	s.NoError(err)

	_, err = s.svc.Add(s.ctx, s.as(s.ana), models.NewID(), "hi")
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.svc.Add(s.ctx, auth.Principal{}, s.post.ID, "hi")
	s.ErrorIs(err, apperrors.ErrUnauthenticated)
}

func (s *CommentsTestSuite) TestPagesAreDisjoint() {
	s.seedComments(25)

	first, err := s.svc.List(s.ctx, s.as(s.bo), s.post.ID, 0, 10)
	s.Require().NoError(err)
	second, err := s.svc.List(s.ctx, s.as(s.bo), s.post.ID, 10, 10)
	s.Require().NoError(err)
	both, err := s.svc.List(s.ctx, s.as(s.bo), s.post.ID, 0, 20)
	s.Require().NoError(err)

	s.Len(first.Items, 10)
	s.Len(second.Items, 10)
	s.Equal(int64(25), first.TotalCount)
	s.True(first.HasMore)
	s.Equal(10, first.NextOffset)
	s.Equal(20, second.NextOffset)

	a, b := ids(first.Items), ids(second.Items)
	for _, id := range a {
		s.NotContains(b, id)
	}

	union := append(append([]string{}, a...), b...)
	all := ids(both.Items)
	sort.Strings(union)
	sort.Strings(all)
	s.Equal(all, union)
}

func (s *CommentsTestSuite) TestLastPageAndOrdering() {
	s.seedComments(3)

	page, err := s.svc.List(s.ctx, s.as(s.bo), s.post.ID, 0, 0)
	s.Require().NoError(err)
	s.Len(page.Items, 3)
	s.False(page.HasMore)
	s.Equal(3, page.NextOffset)
	for i := 1; i < len(page.Items); i++ {
		prev, cur := page.Items[i-1], page.Items[i]
		s.False(prev.CreatedAt.Before(cur.CreatedAt))
	}

	_, err = s.svc.List(s.ctx, s.as(s.bo), s.post.ID, -1, 10)
	s.ErrorIs(err, apperrors.ErrInvalid)
}

func (s *CommentsTestSuite) TestFirstPageCarriesReactions() {
	s.seedComments(12)
	_, _, err := s.reactions.Toggle(s.ctx, s.as(s.ana), s.post.ID, "yummy")
	s.Require().NoError(err)
	time.Sleep(2 * time.Millisecond)
	_, _, err = s.reactions.Toggle(s.ctx, s.as(s.bo), s.post.ID, "love")
	s.Require().NoError(err)

	first, err := s.svc.List(s.ctx, s.as(s.author), s.post.ID, 0, 10)
	s.Require().NoError(err)
	s.Require().NotNil(first.Reactions)
	s.Require().Len(*first.Reactions, 2)
	s.Equal("love", (*first.Reactions)[0].Kind)
	s.Equal(s.bo.ID, (*first.Reactions)[0].User.ID)

	second, err := s.svc.List(s.ctx, s.as(s.author), s.post.ID, 10, 10)
	s.Require().NoError(err)
	s.Nil(second.Reactions)
}

func (s *CommentsTestSuite) TestFirstPageWithoutReactionsStillHasList() {
	s.seedComments(3)

	first, err := s.svc.List(s.ctx, s.as(s.author), s.post.ID, 0, 2)
	s.Require().NoError(err)
	s.Require().NotNil(first.Reactions)
	s.Empty(*first.Reactions)

	raw, err := json.Marshal(first)
	s.Require().NoError(err)
	s.Contains(string(raw), `"reactions":[]`)

	rest, err := s.svc.List(s.ctx, s.as(s.author), s.post.ID, 2, 2)
	s.Require().NoError(err)
	raw, err = json.Marshal(rest)
	s.Require().NoError(err)
	s.NotContains(string(raw), `"reactions"`)
}

func (s *CommentsTestSuite) TestLikeCountsAndCallerFlag() {
	c, err := s.svc.Add(s.ctx, s.as(s.ana), s.post.ID, "first")
	s.Require().NoError(err)
	_, _, err = s.likes.Toggle(s.ctx, s.as(s.bo), c.ID)
	s.Require().NoError(err)

	page, err := s.svc.List(s.ctx, s.as(s.bo), s.post.ID, 0, 10)
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal(int64(1), page.Items[0].LikeCount)
	s.True(page.Items[0].LikedByCaller)
	s.Equal(s.ana.ID, page.Items[0].Author.ID)

	page, err = s.svc.List(s.ctx, s.as(s.author), s.post.ID, 0, 10)
	s.Require().NoError(err)
	s.False(page.Items[0].LikedByCaller)
}

func (s *CommentsTestSuite) TestDeleteOwnership() {
	c, err := s.svc.Add(s.ctx, s.as(s.ana), s.post.ID, "mine")
	s.Require().NoError(err)
	_, _, err = s.likes.Toggle(s.ctx, s.as(s.bo), c.ID)
	s.Require().NoError(err)

	err = s.svc.Delete(s.ctx, s.as(s.bo), c.ID)
	s.ErrorIs(err, apperrors.ErrNotOwner)

	// The post author may moderate comments on their post.
	s.Require().NoError(s.svc.Delete(s.ctx, s.as(s.author), c.ID))

	var likes int64
	s.Require().NoError(s.db.Model(&models.CommentLike{}).Where("comment_id = ?", c.ID).Count(&likes).Error)
	s.Zero(likes)

	err = s.svc.Delete(s.ctx, s.as(s.ana), c.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *CommentsTestSuite) TestPurgePost() {
	c, err := s.svc.Add(s.ctx, s.as(s.ana), s.post.ID, "bye")
	s.Require().NoError(err)
	_, _, err = s.likes.Toggle(s.ctx, s.as(s.bo), c.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.db.Transaction(func(tx *gorm.DB) error {
		return PurgePost(tx, s.post.ID)
	}))

	var n int64
	s.Require().NoError(s.db.Model(&models.Comment{}).Count(&n).Error)
	s.Zero(n)
	s.Require().NoError(s.db.Model(&models.CommentLike{}).Count(&n).Error)
	s.Zero(n)
}

func TestCommentsTestSuite(t *testing.T) {
	suite.Run(t, new(CommentsTestSuite))
}
