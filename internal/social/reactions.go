package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feedora/backend/internal/auth"
	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/notifications"
	"gorm.io/gorm"
)

// RecentActorLimit caps ReactionCounts.RecentActors.
const RecentActorLimit = 5

// Reactor is one user's reaction as shown next to a post.
type Reactor struct {
	User      *models.UserSummary `json:"user"`
	Kind      string              `json:"kind"`
	Emoji     string              `json:"emoji"`
	ReactedAt time.Time           `json:"reactedAt"`
}

// ReactionCounts is the display aggregate for one post. Total always equals
// the sum of PerKind.
type ReactionCounts struct {
	Total        int64            `json:"total"`
	PerKind      map[string]int64 `json:"perKind"`
	CallerKind   string           `json:"callerKind,omitempty"`
	RecentActors []Reactor        `json:"recentActors"`
}

func newReactionCounts() *ReactionCounts {
	per := make(map[string]int64, len(models.ReactionKinds))
	for _, k := range models.ReactionKinds {
		per[string(k)] = 0
	}
	return &ReactionCounts{PerKind: per, RecentActors: []Reactor{}}
}

// ReactionRelation is the toggle relation for post reactions.
func ReactionRelation() Relation {
	kinds := make([]string, 0, len(models.ReactionKinds))
	for _, k := range models.ReactionKinds {
		kinds = append(kinds, string(k))
	}

	return Relation{
		Name:         "reaction",
		Table:        "post_reactions",
		ActorColumn:  "user_id",
		TargetColumn: "post_id",
		KindColumn:   "kind",
		Kinds:        kinds,
		TargetName:   "post",
		TargetExists: ExistsIn("posts"),
		NewRow: func(actor, target, kind string) any {
			return &models.PostReaction{
				PostID: target,
				UserID: actor,
				Kind:   kind,
				Emoji:  models.ReactionKind(kind).Emoji(),
			}
		},
		KindUpdates: func(kind string, now time.Time) map[string]any {
			return map[string]any{
				"kind":       kind,
				"emoji":      models.ReactionKind(kind).Emoji(),
				"updated_at": now,
			}
		},
	}
}

// ReactionService toggles post reactions and aggregates them.
type ReactionService struct {
	db       *gorm.DB
	store    *Store
	notifier Publisher
}

// NewReactionService wires the reaction store. notifier may be nil.
func NewReactionService(db *gorm.DB, notifier Publisher) *ReactionService {
	return &ReactionService{db: db, store: NewStore(db, ReactionRelation()), notifier: notifier}
}

// Toggle applies the caller's reaction kind to a post and returns the new
// aggregate. Adding or switching a reaction notifies the post author.
func (s *ReactionService) Toggle(ctx context.Context, p auth.Principal, postID, kind string) (Result, *ReactionCounts, error) {
	if err := p.Require(); err != nil {
		return Result{}, nil, err
	}

	res, err := s.store.SetState(ctx, p.UserID, postID, kind)
	if err != nil {
		return Result{}, nil, err
	}

	if res.Action == ActionAdded || res.Action == ActionUpdated {
		s.notifyAuthor(ctx, p, postID, res.Kind)
	}

	counts, err := s.Counts(ctx, p, postID)
	if err != nil {
		return res, nil, err
	}
	return res, counts, nil
}

// Clear removes the caller's reaction, if any.
func (s *ReactionService) Clear(ctx context.Context, p auth.Principal, postID string) (Result, error) {
	if err := p.Require(); err != nil {
		return Result{}, err
	}
	return s.store.ClearState(ctx, p.UserID, postID)
}

// State returns the caller's current reaction kind on a post.
func (s *ReactionService) State(ctx context.Context, p auth.Principal, postID string) (string, bool, error) {
	return s.store.GetState(ctx, p.UserID, postID)
}

// Counts aggregates a post's reactions from the reaction rows. The caller may
// be anonymous, in which case CallerKind is empty.
func (s *ReactionService) Counts(ctx context.Context, p auth.Principal, postID string) (*ReactionCounts, error) {
	ok, err := ExistsIn("posts")(s.db.WithContext(ctx), postID)
	if err != nil {
		return nil, fmt.Errorf("lookup post: %w", err)
	}
	if !ok {
		return nil, apperrors.NotFoundf("post")
	}

	all, err := s.CountsFor(ctx, p, []string{postID})
	if err != nil {
		return nil, err
	}
	counts := all[postID]

	var recent []models.PostReaction
	err = s.db.WithContext(ctx).Preload("User").
		Where("post_id = ?", postID).
		Order("updated_at DESC").Order("id DESC").
		Limit(RecentActorLimit).
		Find(&recent).Error
	if err != nil {
		return nil, fmt.Errorf("recent reactors: %w", err)
	}
	counts.RecentActors = toReactors(recent)
	return counts, nil
}

type kindCount struct {
	PostID string
	Kind   string
	N      int64
}

// CountsFor aggregates several posts at once for feed rendering. RecentActors
// is left empty.
func (s *ReactionService) CountsFor(ctx context.Context, p auth.Principal, postIDs []string) (map[string]*ReactionCounts, error) {
	out := make(map[string]*ReactionCounts, len(postIDs))
	for _, id := range postIDs {
		out[id] = newReactionCounts()
	}
	if len(postIDs) == 0 {
		return out, nil
	}

	var rows []kindCount
	err := s.db.WithContext(ctx).Model(&models.PostReaction{}).
		Select("post_id, kind, COUNT(*) AS n").
		Where("post_id IN ?", postIDs).
		Group("post_id, kind").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count reactions: %w", err)
	}
	for _, r := range rows {
		c := out[r.PostID]
		c.PerKind[r.Kind] += r.N
		c.Total += r.N
	}

	if !p.Anonymous() {
		var mine []models.PostReaction
		err := s.db.WithContext(ctx).Select("post_id, kind").
			Where("user_id = ? AND post_id IN ?", p.UserID, postIDs).
			Find(&mine).Error
		if err != nil {
			return nil, fmt.Errorf("caller reactions: %w", err)
		}
		for _, r := range mine {
			out[r.PostID].CallerKind = r.Kind
		}
	}
	return out, nil
}

// Reactors lists a post's reactions newest first, up to limit.
func (s *ReactionService) Reactors(ctx context.Context, postID string, limit int) ([]Reactor, error) {
	var rows []models.PostReaction
	err := s.db.WithContext(ctx).Preload("User").
		Where("post_id = ?", postID).
		Order("updated_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list reactors: %w", err)
	}
	return toReactors(rows), nil
}

func toReactors(rows []models.PostReaction) []Reactor {
	out := make([]Reactor, 0, len(rows))
	for _, r := range rows {
		out = append(out, Reactor{
			User:      r.User.Summary(),
			Kind:      r.Kind,
			Emoji:     r.Emoji,
			ReactedAt: r.UpdatedAt,
		})
	}
	return out
}

func (s *ReactionService) notifyAuthor(ctx context.Context, p auth.Principal, postID, kind string) {
	if s.notifier == nil {
		return
	}

	var post models.Post
	err := s.db.WithContext(ctx).Select("id, user_id").Where("id = ?", postID).First(&post).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WarnWithFields("Failed to load post for reaction notification", err, logger.WithPostID(postID))
		}
		return
	}

	_, err = s.notifier.Publish(ctx, notifications.Event{
		Sender:     p.UserID,
		Recipients: []string{post.UserID},
		Type:       models.NotificationNewReaction,
		Content:    fmt.Sprintf("<b>%s</b> reacted %s to your post", p.Name, models.ReactionKind(kind).Emoji()),
		RelatedID:  postID,
	})
	if err != nil {
		logger.WarnWithFields("Failed to notify post author of reaction", err, logger.WithPostID(postID))
	}
}
