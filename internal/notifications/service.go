package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/metrics"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/pagination"
	"github.com/feedora/backend/internal/telemetry"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultBatchSize = 500
	maxMarkReadIDs   = 500
)

// PageBounds limits notification page sizes.
var PageBounds = pagination.Bounds{Default: 10, Max: 50}

// Event is one triggering action to fan out.
type Event struct {
	Sender     string
	Recipients []string
	Type       models.NotificationType
	Content    string
	RelatedID  string
}

// Result counts what happened to each candidate recipient.
type Result struct {
	Created          int
	SkippedSelf      int
	SkippedDuplicate int
	Failed           int
}

// Deduper claims a dedup key for a window and releases claims early.
// cache.RedisClient implements it.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Service materializes and serves notifications.
type Service struct {
	db        *gorm.DB
	policies  map[models.NotificationType]Policy
	dedup     Deduper
	sanitizer *bluemonday.Policy
	batchSize int
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithDeduper adds a shared claim store on top of the SQL window check.
func WithDeduper(d Deduper) Option {
	return func(s *Service) { s.dedup = d }
}

// WithPolicies replaces the per-type delivery rules.
func WithPolicies(p map[models.NotificationType]Policy) Option {
	return func(s *Service) { s.policies = p }
}

// WithBatchSize sets the insert batch size.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewService creates a notification service with DefaultPolicies.
func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:        db,
		policies:  DefaultPolicies(DefaultDedupWindow),
		sanitizer: contentPolicy(),
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func contentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "br")
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(true)
	return p
}

// Publish resolves recipients from the type's policy and calls Notify.
func (s *Service) Publish(ctx context.Context, ev Event) (Result, error) {
	policy, ok := s.policies[ev.Type]
	if !ok {
		return Result{}, apperrors.Invalidf("unknown notification type %q", ev.Type)
	}

	var err error
	switch policy.Audience {
	case AudienceAllUsers:
		ev.Recipients, err = s.allUserIDs(ctx, ev.Sender)
	case AudienceFollowers:
		ev.Recipients, err = s.followerIDs(ctx, ev.Sender)
	}
	if err != nil {
		return Result{}, fmt.Errorf("resolve %s recipients: %w", policy.Audience, err)
	}

	return s.Notify(ctx, ev)
}

// Notify creates one notification per recipient. The sender is always
// excluded, recent identical notifications are skipped, and insert failures
// are logged per recipient rather than returned.
func (s *Service) Notify(ctx context.Context, ev Event) (res Result, err error) {
	if ev.Sender == "" {
		return res, apperrors.ErrUnauthenticated
	}
	policy, ok := s.policies[ev.Type]
	if !ok {
		return res, apperrors.Invalidf("unknown notification type %q", ev.Type)
	}

	ctx, span := telemetry.StartSpan(ctx, "notifications.fanout",
		attribute.String("notification.type", string(ev.Type)),
		attribute.Int("notification.candidates", len(ev.Recipients)),
	)
	start := time.Now()
	defer func() {
		metrics.Get().FanoutDuration.WithLabelValues(string(ev.Type)).Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.Int("notification.created", res.Created))
		telemetry.EndSpan(span, err)
	}()

	recipients, skippedSelf := uniqueRecipients(ev.Sender, ev.Recipients)
	res.SkippedSelf = skippedSelf
	if len(recipients) == 0 {
		s.record(ev.Type, res)
		return res, nil
	}

	now := s.now().UTC()
	if policy.DedupWindow > 0 {
		before := len(recipients)
		recipients = s.dropDuplicates(ctx, ev, recipients, now, policy.DedupWindow)
		res.SkippedDuplicate = before - len(recipients)
	}

	content := s.sanitizer.Sanitize(ev.Content)
	rows := make([]models.Notification, 0, len(recipients))
	for _, r := range recipients {
		rows = append(rows, models.Notification{
			SenderID:    ev.Sender,
			RecipientID: r,
			Type:        ev.Type,
			Content:     content,
			RelatedID:   ev.RelatedID,
			CreatedAt:   now,
		})
	}

	res.Created, res.Failed = s.insert(ctx, rows)
	s.record(ev.Type, res)
	return res, nil
}

// dropDuplicates removes recipients that already got an identical
// notification inside the window, then claims the rest in the Deduper so
// concurrent fan-outs of the same event cannot both insert.
func (s *Service) dropDuplicates(ctx context.Context, ev Event, recipients []string, now time.Time, window time.Duration) []string {
	since := now.Add(-window)
	seen := make(map[string]struct{})

	for start := 0; start < len(recipients); start += s.batchSize {
		end := min(start+s.batchSize, len(recipients))

		var ids []string
		err := s.db.WithContext(ctx).Model(&models.Notification{}).
			Where("sender_id = ? AND type = ? AND related_id = ? AND created_at >= ?",
				ev.Sender, ev.Type, ev.RelatedID, since).
			Where("recipient_id IN ?", recipients[start:end]).
			Distinct().
			Pluck("recipient_id", &ids).Error
		if err != nil {
			logger.WarnWithFields("Notification dedup lookup failed", err, logger.WithNotificationType(string(ev.Type)))
			continue
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}

	out := recipients[:0]
	for _, r := range recipients {
		if _, dup := seen[r]; dup {
			continue
		}
		if s.dedup != nil {
			claimed, err := s.dedup.Claim(ctx, dedupKey(ev, r), window)
			if err != nil {
				logger.WarnWithFields("Notification dedup claim failed", err, logger.WithNotificationType(string(ev.Type)))
			} else if !claimed {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func (s *Service) insert(ctx context.Context, rows []models.Notification) (created, failed int) {
	if len(rows) == 0 {
		return 0, 0
	}

	err := s.db.WithContext(ctx).CreateInBatches(&rows, s.batchSize).Error
	if err == nil {
		return len(rows), 0
	}
	logger.WarnWithFields("Notification batch insert failed, retrying per recipient", err,
		logger.WithNotificationType(string(rows[0].Type)), zap.Int("rows", len(rows)))

	for i := range rows {
		if err := s.db.WithContext(ctx).Create(&rows[i]).Error; err != nil {
			failed++
			logger.WarnWithFields("Notification insert failed", err,
				logger.WithUserID(rows[i].RecipientID), logger.WithNotificationType(string(rows[i].Type)))
			continue
		}
		created++
	}
	return created, failed
}

func (s *Service) record(t models.NotificationType, res Result) {
	c := metrics.Get().NotificationsTotal
	c.WithLabelValues(string(t), "created").Add(float64(res.Created))
	c.WithLabelValues(string(t), "skipped_self").Add(float64(res.SkippedSelf))
	c.WithLabelValues(string(t), "skipped_duplicate").Add(float64(res.SkippedDuplicate))
	c.WithLabelValues(string(t), "failed").Add(float64(res.Failed))
}

func (s *Service) allUserIDs(ctx context.Context, except string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id <> ?", except).Pluck("id", &ids).Error
	return ids, err
}

func (s *Service) followerIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Follow{}).Where("followee_id = ?", userID).Pluck("follower_id", &ids).Error
	return ids, err
}

func uniqueRecipients(sender string, in []string) (out []string, skippedSelf int) {
	seen := make(map[string]struct{}, len(in))
	for _, r := range in {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if r == sender {
			skippedSelf = 1
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, skippedSelf
}

func dedupKey(ev Event, recipient string) string {
	return fmt.Sprintf("notif:dedup:%s:%s:%s:%s", ev.Sender, recipient, ev.Type, ev.RelatedID)
}
