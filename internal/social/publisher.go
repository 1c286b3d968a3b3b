package social

import (
	"context"

	"github.com/feedora/backend/internal/notifications"
)

// Publisher fans out notifications. *notifications.Service implements it.
type Publisher interface {
	Publish(ctx context.Context, ev notifications.Event) (notifications.Result, error)
}

var _ Publisher = (*notifications.Service)(nil)
