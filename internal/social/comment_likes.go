package social

import (
	"context"
	"fmt"

	"github.com/feedora/backend/internal/auth"
	"github.com/feedora/backend/internal/models"
	"gorm.io/gorm"
)

// CommentLikeRelation is the presence toggle behind comment likes.
func CommentLikeRelation() Relation {
	return Relation{
		Name:         "comment_like",
		Table:        "comment_likes",
		ActorColumn:  "user_id",
		TargetColumn: "comment_id",
		TargetName:   "comment",
		TargetExists: ExistsIn("comments"),
		NewRow: func(actor, target, _ string) any {
			return &models.CommentLike{UserID: actor, CommentID: target}
		},
	}
}

// CommentLikeService toggles and counts comment likes.
type CommentLikeService struct {
	db    *gorm.DB
	store *Store
}

func NewCommentLikeService(db *gorm.DB) *CommentLikeService {
	return &CommentLikeService{db: db, store: NewStore(db, CommentLikeRelation())}
}

// Toggle likes or unlikes a comment and returns its like count afterwards.
func (s *CommentLikeService) Toggle(ctx context.Context, p auth.Principal, commentID string) (Result, int64, error) {
	if err := p.Require(); err != nil {
		return Result{}, 0, err
	}
	res, err := s.store.SetState(ctx, p.UserID, commentID, "")
	if err != nil {
		return Result{}, 0, err
	}
	counts, err := s.Counts(ctx, []string{commentID})
	return res, counts[commentID], err
}

type likeCount struct {
	CommentID string
	N         int64
}

// Counts returns like counts per comment id. Missing ids map to zero.
func (s *CommentLikeService) Counts(ctx context.Context, commentIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(commentIDs))
	if len(commentIDs) == 0 {
		return out, nil
	}
	var rows []likeCount
	err := s.db.WithContext(ctx).Model(&models.CommentLike{}).
		Select("comment_id, COUNT(*) AS n").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count comment likes: %w", err)
	}
	for _, r := range rows {
		out[r.CommentID] = r.N
	}
	return out, nil
}

// LikedBy returns the subset of commentIDs userID has liked.
func (s *CommentLikeService) LikedBy(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if userID == "" || len(commentIDs) == 0 {
		return out, nil
	}
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.CommentLike{}).
		Where("user_id = ? AND comment_id IN ?", userID, commentIDs).
		Pluck("comment_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("caller comment likes: %w", err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
