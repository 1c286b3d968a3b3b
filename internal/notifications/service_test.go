package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/feedora/backend/internal/auth"
	"github.com/feedora/backend/internal/cache"
	"github.com/feedora/backend/internal/database/dbtest"
	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type NotificationServiceTestSuite struct {
	suite.Suite
	db    *gorm.DB
	svc   *Service
	ctx   context.Context
	clock time.Time

	ana, bo, cy, dee *models.User
}

func (s *NotificationServiceTestSuite) SetupTest() {
	s.db = dbtest.New(s.T())
	s.svc = NewService(s.db)
	s.clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.svc.now = func() time.Time { return s.clock }
	s.ctx = context.Background()

	s.ana = dbtest.CreateUser(s.T(), s.db, "Ana")
	s.bo = dbtest.CreateUser(s.T(), s.db, "Bo")
	s.cy = dbtest.CreateUser(s.T(), s.db, "Cy")
	s.dee = dbtest.CreateUser(s.T(), s.db, "Dee")
}

func (s *NotificationServiceTestSuite) count(where ...interface{}) int64 {
	var n int64
	q := s.db.Model(&models.Notification{})
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	s.Require().NoError(q.Count(&n).Error)
	return n
}

func (s *NotificationServiceTestSuite) TestNotifyNeverNotifiesSender() {
	res, err := s.svc.Notify(s.ctx, Event{
		Sender:     s.ana.ID,
		Recipients: []string{s.ana.ID, s.bo.ID, s.bo.ID},
		Type:       models.NotificationNewReaction,
		Content:    "Ana reacted to your post",
		RelatedID:  "post-1",
	})
	s.Require().NoError(err)
	s.Equal(1, res.Created)
	s.Equal(1, res.SkippedSelf)
	s.Zero(s.count("recipient_id = ?", s.ana.ID))
	s.Equal(int64(1), s.count("recipient_id = ?", s.bo.ID))
}

func (s *NotificationServiceTestSuite) TestNotifyDedupWithinWindow() {
	ev := Event{Sender: s.ana.ID, Recipients: []string{s.bo.ID}, Type: models.NotificationNewReaction, RelatedID: "post-1"}

	first, err := s.svc.Notify(s.ctx, ev)
	s.Require().NoError(err)
	s.Equal(1, first.Created)

	s.clock = s.clock.Add(299 * time.Second)
	second, err := s.svc.Notify(s.ctx, ev)
	s.Require().NoError(err)
	s.Zero(second.Created)
	s.Equal(1, second.SkippedDuplicate)
	s.Equal(int64(1), s.count())

	// A different related entity is not a duplicate.
	other := ev
	other.RelatedID = "post-2"
	third, err := s.svc.Notify(s.ctx, other)
	s.Require().NoError(err)
	s.Equal(1, third.Created)

	s.clock = s.clock.Add(2 * time.Second)
	fourth, err := s.svc.Notify(s.ctx, ev)
	s.Require().NoError(err)
	s.Equal(1, fourth.Created)
}

func (s *NotificationServiceTestSuite) TestTestTypeIsNotDeduplicated() {
	ev := Event{Sender: s.ana.ID, Recipients: []string{s.bo.ID}, Type: models.NotificationTest, Content: "ping"}
	for i := 0; i < 2; i++ {
		res, err := s.svc.Notify(s.ctx, ev)
		s.Require().NoError(err)
		s.Equal(1, res.Created)
	}
	s.Equal(int64(2), s.count())
}

func (s *NotificationServiceTestSuite) TestNotifyRejectsUnknownTypeAndAnonymousSender() {
	_, err := s.svc.Notify(s.ctx, Event{Sender: s.ana.ID, Recipients: []string{s.bo.ID}, Type: "party"})
	s.ErrorIs(err, apperrors.ErrInvalid)

	_, err = s.svc.Notify(s.ctx, Event{Recipients: []string{s.bo.ID}, Type: models.NotificationTest})
	s.ErrorIs(err, apperrors.ErrUnauthenticated)
}

func (s *NotificationServiceTestSuite) TestPublishNewPostReachesAllOtherUsers() {
	res, err := s.svc.Publish(s.ctx, Event{Sender: s.ana.ID, Type: models.NotificationNewPost, RelatedID: "post-1", Content: "Ana posted"})
	s.Require().NoError(err)

	// N users, N-1 rows.
	s.Equal(3, res.Created)
	s.Equal(int64(3), s.count())
	s.Zero(s.count("recipient_id = ?", s.ana.ID))
}

func (s *NotificationServiceTestSuite) TestPublishStoryReachesFollowersOnly() {
	dbtest.Follow(s.T(), s.db, s.bo.ID, s.ana.ID)
	dbtest.Follow(s.T(), s.db, s.cy.ID, s.ana.ID)
	dbtest.Follow(s.T(), s.db, s.ana.ID, s.dee.ID)

	res, err := s.svc.Publish(s.ctx, Event{Sender: s.ana.ID, Type: models.NotificationNewStory, RelatedID: "story-1"})
	s.Require().NoError(err)
	s.Equal(2, res.Created)
	s.Zero(s.count("recipient_id = ?", s.dee.ID))
}

func (s *NotificationServiceTestSuite) TestSmallBatchesInsertEveryRow() {
	svc := NewService(s.db, WithBatchSize(2))
	svc.now = s.svc.now

	for i := 0; i < 5; i++ {
		dbtest.CreateUser(s.T(), s.db, fmt.Sprintf("Extra %d", i))
	}
	res, err := svc.Publish(s.ctx, Event{Sender: s.ana.ID, Type: models.NotificationNewPost, RelatedID: "post-9"})
	s.Require().NoError(err)
	s.Equal(8, res.Created)
	s.Zero(res.Failed)
}

func (s *NotificationServiceTestSuite) TestContentIsSanitized() {
	_, err := s.svc.Notify(s.ctx, Event{
		Sender:     s.ana.ID,
		Recipients: []string{s.bo.ID},
		Type:       models.NotificationNewComment,
		Content:    `<b>Ana</b> commented <img src=x onerror=alert(1)>`,
		RelatedID:  "c1",
	})
	s.Require().NoError(err)

	var n models.Notification
	s.Require().NoError(s.db.First(&n).Error)
	s.Contains(n.Content, "<b>Ana</b>")
	s.NotContains(n.Content, "onerror")
	s.NotContains(n.Content, "<img")
}

func (s *NotificationServiceTestSuite) TestRedisClaimSuppressesConcurrentDuplicate() {
	mr := miniredis.RunT(s.T())
	rc := cache.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer rc.Close()

	svc := NewService(s.db, WithDeduper(rc))
	svc.now = s.svc.now
	ev := Event{Sender: s.ana.ID, Recipients: []string{s.bo.ID}, Type: models.NotificationNewFollower, RelatedID: s.ana.ID}

	res, err := svc.Notify(s.ctx, ev)
	s.Require().NoError(err)
	s.Equal(1, res.Created)

	// Even with the SQL row gone, the claim still holds for the window.
	s.Require().NoError(s.db.Where("1 = 1").Delete(&models.Notification{}).Error)
	res, err = svc.Notify(s.ctx, ev)
	s.Require().NoError(err)
	s.Zero(res.Created)
	s.Equal(1, res.SkippedDuplicate)

	mr.FastForward(DefaultDedupWindow + time.Second)
	res, err = svc.Notify(s.ctx, ev)
	s.Require().NoError(err)
	s.Equal(1, res.Created)
}

func (s *NotificationServiceTestSuite) TestDeleteReleasesRedisClaim() {
	mr := miniredis.RunT(s.T())
	rc := cache.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer rc.Close()

	svc := NewService(s.db, WithDeduper(rc))
	svc.now = s.svc.now
	ev := Event{Sender: s.ana.ID, Recipients: []string{s.bo.ID}, Type: models.NotificationNewFollower, RelatedID: s.ana.ID}

	res, err := svc.Notify(s.ctx, ev)
	s.Require().NoError(err)
	s.Require().Equal(1, res.Created)
	s.True(mr.Exists(dedupKey(ev, s.bo.ID)))

	var row models.Notification
	s.Require().NoError(s.db.Where("recipient_id = ?", s.bo.ID).First(&row).Error)
	s.Require().NoError(svc.Delete(s.ctx, auth.Principal{UserID: s.bo.ID}, row.ID))
	s.False(mr.Exists(dedupKey(ev, s.bo.ID)))

	res, err = svc.Notify(s.ctx, ev)
	s.Require().NoError(err)
	s.Equal(1, res.Created)
}

func (s *NotificationServiceTestSuite) seedInbox(recipient *models.User, n int) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s.clock = s.clock.Add(time.Second)
		_, err := s.svc.Notify(s.ctx, Event{
			Sender:     s.ana.ID,
			Recipients: []string{recipient.ID},
			Type:       models.NotificationNewComment,
			RelatedID:  fmt.Sprintf("comment-%d", i),
		})
		s.Require().NoError(err)
	}
	var rows []models.Notification
	s.Require().NoError(s.db.Where("recipient_id = ?", recipient.ID).Order("created_at ASC").Find(&rows).Error)
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}

func (s *NotificationServiceTestSuite) TestMarkReadIgnoresOtherRecipients() {
	boIDs := s.seedInbox(s.bo, 3)
	cyIDs := s.seedInbox(s.cy, 2)

	bo := auth.Principal{UserID: s.bo.ID}
	updated, unread, err := s.svc.MarkRead(s.ctx, bo, []string{boIDs[0], cyIDs[0], "missing"})
	s.Require().NoError(err)
	s.Equal(int64(1), updated)
	s.Equal(int64(2), unread)

	var cyFirst models.Notification
	s.Require().NoError(s.db.First(&cyFirst, "id = ?", cyIDs[0]).Error)
	s.False(cyFirst.IsRead)

	// Marking again changes nothing.
	updated, unread, err = s.svc.MarkRead(s.ctx, bo, []string{boIDs[0]})
	s.Require().NoError(err)
	s.Zero(updated)
	s.Equal(int64(2), unread)

	_, _, err = s.svc.MarkRead(s.ctx, auth.Principal{}, boIDs)
	s.ErrorIs(err, apperrors.ErrUnauthenticated)
}

func (s *NotificationServiceTestSuite) TestMarkReadSkipsMalformedIDs() {
	ids := s.seedInbox(s.bo, 2)
	bo := auth.Principal{UserID: s.bo.ID}

	s.Equal([]string{ids[1]}, wellFormed([]string{"abc", ids[1], "", "1234"}))

	updated, unread, err := s.svc.MarkRead(s.ctx, bo, []string{"not-a-uuid", ids[1]})
	s.Require().NoError(err)
	s.Equal(int64(1), updated)
	s.Equal(int64(1), unread)

	updated, unread, err = s.svc.MarkRead(s.ctx, bo, []string{"not-a-uuid"})
	s.Require().NoError(err)
	s.Zero(updated)
	s.Equal(int64(1), unread)

	s.ErrorIs(s.svc.Delete(s.ctx, bo, "not-a-uuid"), apperrors.ErrNotFound)
}

func (s *NotificationServiceTestSuite) TestMarkAllReadAndDelete() {
	ids := s.seedInbox(s.bo, 3)
	bo := auth.Principal{UserID: s.bo.ID}

	n, err := s.svc.MarkAllRead(s.ctx, bo)
	s.Require().NoError(err)
	s.Equal(int64(3), n)

	unread, err := s.svc.UnreadCount(s.ctx, bo)
	s.Require().NoError(err)
	s.Zero(unread)

	s.ErrorIs(s.svc.Delete(s.ctx, auth.Principal{UserID: s.cy.ID}, ids[0]), apperrors.ErrNotFound)
	s.NoError(s.svc.Delete(s.ctx, bo, ids[0]))
	s.Equal(int64(2), s.count("recipient_id = ?", s.bo.ID))
}

func (s *NotificationServiceTestSuite) TestListPageNewestFirst() {
	ids := s.seedInbox(s.bo, 12)
	bo := auth.Principal{UserID: s.bo.ID}

	page1, err := s.svc.ListPage(s.ctx, bo, 1, 5)
	s.Require().NoError(err)
	s.Equal(int64(12), page1.Total)
	s.Equal(3, page1.PageCount)
	s.Require().Len(page1.Items, 5)
	s.Equal(ids[11], page1.Items[0].ID)
	s.Require().NotNil(page1.Items[0].Sender)
	s.Equal(s.ana.ID, page1.Items[0].Sender.ID)

	page3, err := s.svc.ListPage(s.ctx, bo, 3, 5)
	s.Require().NoError(err)
	s.Require().Len(page3.Items, 2)
	s.Equal(ids[0], page3.Items[1].ID)

	// Out-of-range values are clamped rather than rejected.
	clamped, err := s.svc.ListPage(s.ctx, bo, 0, 1000)
	s.Require().NoError(err)
	s.Equal(1, clamped.Page)
	s.Equal(PageBounds.Max, clamped.PageSize)
}

func (s *NotificationServiceTestSuite) TestListPageFarPastEndIsEmpty() {
	s.seedInbox(s.bo, 3)
	bo := auth.Principal{UserID: s.bo.ID}

	page, err := s.svc.ListPage(s.ctx, bo, 922337203685477582, 10)
	s.Require().NoError(err)
	s.Empty(page.Items)
	s.Equal(int64(3), page.Total)
	s.Equal(1, page.PageCount)
}

func (s *NotificationServiceTestSuite) TestPurgeRelated() {
	s.seedInbox(s.bo, 2)
	s.Require().NoError(PurgeRelated(s.db, "comment-0"))
	s.Equal(int64(1), s.count())
}

func TestNotificationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceTestSuite))
}
