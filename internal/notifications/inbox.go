package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feedora/backend/internal/auth"
	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Item is a notification as shown in the recipient's inbox.
type Item struct {
	ID        string                  `json:"id"`
	Type      models.NotificationType `json:"type"`
	Content   string                  `json:"content"`
	RelatedID string                  `json:"relatedId"`
	IsRead    bool                    `json:"isRead"`
	CreatedAt time.Time               `json:"createdAt"`
	Sender    *models.UserSummary     `json:"sender"`
}

// Page is one page of a recipient's notifications, newest first.
type Page struct {
	Items     []Item
	Total     int64
	Page      int
	PageSize  int
	PageCount int
}

// ListPage returns the caller's notifications for a 1-based page.
func (s *Service) ListPage(ctx context.Context, p auth.Principal, page, pageSize int) (*Page, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}
	pg := pagination.NewPage(page, pageSize, PageBounds)

	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", p.UserID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	var rows []models.Notification
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("recipient_id = ?", p.UserID).
		Order("created_at DESC").Order("id DESC").
		Offset(pg.Offset()).Limit(pg.Size).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	items := make([]Item, 0, len(rows))
	for _, n := range rows {
		items = append(items, Item{
			ID:        n.ID,
			Type:      n.Type,
			Content:   n.Content,
			RelatedID: n.RelatedID,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
			Sender:    n.Sender.Summary(),
		})
	}

	return &Page{
		Items:     items,
		Total:     total,
		Page:      pg.Number,
		PageSize:  pg.Size,
		PageCount: pg.Count(total),
	}, nil
}

// MarkRead flags the caller's notifications in ids as read. Ids that belong to
// other users, do not exist or are not UUIDs are ignored. It returns how many rows changed
// and the caller's remaining unread count.
func (s *Service) MarkRead(ctx context.Context, p auth.Principal, ids []string) (updated, unread int64, err error) {
	if err := p.Require(); err != nil {
		return 0, 0, err
	}
	if len(ids) > maxMarkReadIDs {
		return 0, 0, apperrors.Invalidf("at most %d ids per request", maxMarkReadIDs)
	}

	ids = wellFormed(ids)
	if len(ids) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Notification{}).
			Where("recipient_id = ? AND id IN ? AND is_read = ?", p.UserID, ids, false).
			Update("is_read", true)
		if res.Error != nil {
			return 0, 0, fmt.Errorf("mark notifications read: %w", res.Error)
		}
		updated = res.RowsAffected
	}

	unread, err = s.UnreadCount(ctx, p)
	return updated, unread, err
}

func wellFormed(ids []string) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if uuid.Validate(id) == nil {
			out = append(out, id)
		}
	}
	return out
}

// MarkAllRead flags every unread notification of the caller as read.
func (s *Service) MarkAllRead(ctx context.Context, p auth.Principal) (int64, error) {
	if err := p.Require(); err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", p.UserID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// UnreadCount returns the caller's unread total.
func (s *Service) UnreadCount(ctx context.Context, p auth.Principal) (int64, error) {
	if err := p.Require(); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", p.UserID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// Delete removes one of the caller's notifications. Its dedup claim goes with
// it, so a repeat of the event can notify again.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	if err := p.Require(); err != nil {
		return err
	}
	if uuid.Validate(id) != nil {
		return apperrors.NotFoundf("notification")
	}

	var n models.Notification
	err := s.db.WithContext(ctx).Where("id = ? AND recipient_id = ?", id, p.UserID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFoundf("notification")
	}
	if err != nil {
		return fmt.Errorf("load notification: %w", err)
	}

	res := s.db.WithContext(ctx).Where("id = ? AND recipient_id = ?", id, p.UserID).Delete(&models.Notification{})
	if res.Error != nil {
		return fmt.Errorf("delete notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFoundf("notification")
	}

	if s.dedup != nil {
		key := dedupKey(Event{Sender: n.SenderID, Type: n.Type, RelatedID: n.RelatedID}, n.RecipientID)
		if err := s.dedup.Del(ctx, key); err != nil {
			logger.WarnWithFields("Failed to release notification dedup claim", err, logger.WithNotificationType(string(n.Type)))
		}
	}
	return nil
}

// PurgeRelated deletes notifications pointing at removed entities. It takes
// the caller's transaction so it commits with the delete that triggered it.
func PurgeRelated(tx *gorm.DB, relatedIDs ...string) error {
	if len(relatedIDs) == 0 {
		return nil
	}
	return tx.Where("related_id IN ?", relatedIDs).Delete(&models.Notification{}).Error
}
