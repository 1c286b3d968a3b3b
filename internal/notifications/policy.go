package notifications

import (
	"time"

	"github.com/feedora/backend/internal/models"
)

// DefaultDedupWindow suppresses identical notifications created this recently.
const DefaultDedupWindow = 300 * time.Second

// Audience selects who receives an event published through Publish.
type Audience int

const (
	// AudienceExplicit delivers to Event.Recipients as given.
	AudienceExplicit Audience = iota
	// AudienceAllUsers delivers to every user except the sender.
	AudienceAllUsers
	// AudienceFollowers delivers to the sender's followers.
	AudienceFollowers
)

func (a Audience) String() string {
	switch a {
	case AudienceAllUsers:
		return "all_users"
	case AudienceFollowers:
		return "followers"
	default:
		return "explicit"
	}
}

// Policy is the per-type delivery rule. A zero DedupWindow disables dedup.
type Policy struct {
	Audience    Audience
	DedupWindow time.Duration
}

// DefaultPolicies returns the delivery rule for every notification type,
// using window as the dedup window where dedup applies.
func DefaultPolicies(window time.Duration) map[models.NotificationType]Policy {
	return map[models.NotificationType]Policy{
		models.NotificationNewPost:     {Audience: AudienceAllUsers, DedupWindow: window},
		models.NotificationNewStory:    {Audience: AudienceFollowers, DedupWindow: window},
		models.NotificationNewRecipe:   {Audience: AudienceFollowers, DedupWindow: window},
		models.NotificationNewReaction: {Audience: AudienceExplicit, DedupWindow: window},
		models.NotificationNewComment:  {Audience: AudienceExplicit, DedupWindow: window},
		models.NotificationNewFollower: {Audience: AudienceExplicit, DedupWindow: window},
		models.NotificationNewMessage:  {Audience: AudienceExplicit, DedupWindow: window},
		models.NotificationTest:        {Audience: AudienceExplicit},
	}
}
