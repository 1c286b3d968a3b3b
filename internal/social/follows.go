package social

import (
	"context"
	"fmt"

	"github.com/feedora/backend/internal/auth"
	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/notifications"
	"github.com/feedora/backend/internal/pagination"
	"gorm.io/gorm"
)

// FollowListBounds limits follower/following pages.
var FollowListBounds = pagination.Bounds{Default: 20, Max: 100}

// FollowRelation is the presence toggle behind follow/unfollow.
func FollowRelation() Relation {
	return Relation{
		Name:         "follow",
		Table:        "follows",
		ActorColumn:  "follower_id",
		TargetColumn: "followee_id",
		TargetName:   "user",
		TargetExists: ExistsIn("users"),
		Validate: func(actor, target string) error {
			if actor == target {
				return apperrors.Invalidf("you cannot follow yourself")
			}
			return nil
		},
		NewRow: func(actor, target, _ string) any {
			return &models.Follow{FollowerID: actor, FolloweeID: target}
		},
	}
}

// FollowService manages the follow graph.
type FollowService struct {
	db       *gorm.DB
	store    *Store
	notifier Publisher
}

// NewFollowService wires the follow store. notifier may be nil.
func NewFollowService(db *gorm.DB, notifier Publisher) *FollowService {
	return &FollowService{db: db, store: NewStore(db, FollowRelation()), notifier: notifier}
}

// Toggle follows targetUserID, or unfollows when already following, and
// returns the target's follower count afterwards.
func (s *FollowService) Toggle(ctx context.Context, p auth.Principal, targetUserID string) (Result, int64, error) {
	if err := p.Require(); err != nil {
		return Result{}, 0, err
	}

	res, err := s.store.SetState(ctx, p.UserID, targetUserID, "")
	if err != nil {
		return Result{}, 0, err
	}

	if res.Action == ActionAdded && s.notifier != nil {
		_, err := s.notifier.Publish(ctx, notifications.Event{
			Sender:     p.UserID,
			Recipients: []string{targetUserID},
			Type:       models.NotificationNewFollower,
			Content:    fmt.Sprintf("<b>%s</b> started following you", p.Name),
			RelatedID:  p.UserID,
		})
		if err != nil {
			logger.WarnWithFields("Failed to notify new follower", err, logger.WithUserID(targetUserID))
		}
	}

	count, err := s.FollowerCount(ctx, targetUserID)
	return res, count, err
}

// IsFollowing reports whether followerID follows followeeID.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	_, found, err := s.store.GetState(ctx, followerID, followeeID)
	return found, err
}

// FollowerCount counts users following userID.
func (s *FollowService) FollowerCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).Where("followee_id = ?", userID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count followers: %w", err)
	}
	return n, nil
}

// FollowingCount counts users userID follows.
func (s *FollowService) FollowingCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count following: %w", err)
	}
	return n, nil
}

// Followers lists who follows userID, most recent first.
func (s *FollowService) Followers(ctx context.Context, userID string, cur pagination.Cursor) ([]models.UserSummary, int64, error) {
	return s.list(ctx, "followee_id", "follower_id", userID, cur)
}

// Following lists whom userID follows, most recent first.
func (s *FollowService) Following(ctx context.Context, userID string, cur pagination.Cursor) ([]models.UserSummary, int64, error) {
	return s.list(ctx, "follower_id", "followee_id", userID, cur)
}

func (s *FollowService) list(ctx context.Context, matchCol, userCol, userID string, cur pagination.Cursor) ([]models.UserSummary, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).Where(matchCol+" = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count follows: %w", err)
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Select("users.*").
		Joins("JOIN follows ON follows."+userCol+" = users.id").
		Where("follows."+matchCol+" = ?", userID).
		Order("follows.created_at DESC").Order("follows.id DESC").
		Offset(cur.Offset).Limit(cur.Limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list follows: %w", err)
	}

	out := make([]models.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, *users[i].Summary())
	}
	return out, total, nil
}
