package websocket

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	"github.com/yourusername/marketplace-api/internal/metrics"
)

// DirectoryLookup resolves a directory row so events can be routed by subject.
type DirectoryLookup interface {
	GetByID(ctx context.Context, id uint) (*entity.User, error)
}

// EventSender is the part of Manager the notifier needs.
type EventSender interface {
	SendEventToSubject(subject, eventType string, data interface{}) error
}

// Notifier pushes realtime events for newly created rows.
type Notifier struct {
	sender EventSender
	users  DirectoryLookup
}

func NewNotifier(sender EventSender, users DirectoryLookup) (*Notifier, error) {
	if sender == nil || users == nil {
		return nil, fmt.Errorf("event sender and directory lookup are required for Notifier")
	}
	return &Notifier{sender: sender, users: users}, nil
}

// MessageCreated notifies the receiver of msg.
func (n *Notifier) MessageCreated(ctx context.Context, msg *entity.Message) {
	n.push(ctx, msg.ReceiverID, EventMessageCreated, msg)
}

// NotificationCreated notifies the owner of notification.
func (n *Notifier) NotificationCreated(ctx context.Context, notification *entity.Notification) {
	n.push(ctx, notification.UserID, EventNotificationCreated, notification)
}

func (n *Notifier) push(ctx context.Context, userID uint, eventType string, data interface{}) {
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Uint("user_id", userID).Str("type", eventType).Msg("[Notifier] Recipient lookup failed")
		return
	}
	subject := user.Subject()
	if subject == "" {
		// legacy row without a linked identity cannot hold a connection
		return
	}
	if err := n.sender.SendEventToSubject(subject, eventType, data); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("type", eventType).Msg("[Notifier] Failed to publish event")
		return
	}
	metrics.RealtimeEventsTotal.WithLabelValues(eventType).Inc()
}
