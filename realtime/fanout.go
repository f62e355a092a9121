package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/techagentng/notify/models"
	"go.uber.org/zap"
)

// CreatedEvent mirrors a freshly delivered notification. ReadAt is always
// null at creation time.
type CreatedEvent struct {
	ID        uuid.UUID      `json:"id"`
	OwnerID   *uuid.UUID     `json:"owner_id"`
	Scope     string         `json:"scope"`
	Category  string         `json:"category"`
	Title     *string        `json:"title"`
	Message   string         `json:"message"`
	Payload   models.JSONMap `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	ReadAt    *time.Time     `json:"read_at"`
}

// StateEvent describes a read/dismiss transition for one recipient.
type StateEvent struct {
	ID          uuid.UUID  `json:"id"`
	Scope       string     `json:"scope"`
	ReadAt      *time.Time `json:"read_at"`
	DismissedAt *time.Time `json:"dismissed_at"`
	Action      string     `json:"action"`
}

// BulkEvent describes a bulk transition. An empty IDs list means the action
// affected an implicit set, e.g. read-all.
type BulkEvent struct {
	Action string      `json:"action"`
	IDs    []uuid.UUID `json:"ids"`
}

// Fanout wraps a Publisher with the fire-and-forget policy the mutating
// operations rely on: a short timeout and swallowed failures. A lost
// realtime message is acceptable, a rolled-back mutation is not.
type Fanout struct {
	pub     Publisher
	log     *zap.Logger
	timeout time.Duration
}

func NewFanout(pub Publisher, log *zap.Logger) *Fanout {
	return &Fanout{pub: pub, log: log, timeout: 2 * time.Second}
}

func (f *Fanout) publish(channel, event string, payload interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	if err := f.pub.Publish(ctx, channel, event, payload); err != nil {
		f.log.Warn("realtime publish failed",
			zap.String("channel", channel),
			zap.String("event", event),
			zap.Error(err))
	}
}

// NotificationDelivered announces a notification that just became visible,
// either at creation or when the scheduler promoted it. User-scope goes to
// the owner's channel, broadcast scopes to the shared system channel.
func (f *Fanout) NotificationDelivered(n *models.Notification) {
	channel := SystemChannel
	if n.Scope == models.ScopeUser && n.OwnerID != nil {
		channel = UserChannel(*n.OwnerID)
	}
	f.publish(channel, EventCreated, CreatedEvent{
		ID:        n.ID,
		OwnerID:   n.OwnerID,
		Scope:     n.Scope,
		Category:  n.Category,
		Title:     n.Title,
		Message:   n.Message,
		Payload:   n.Payload,
		CreatedAt: n.CreatedAt,
	})
}

// StateChanged announces a per-recipient transition. It always targets the
// affected user's own channel: even for a broadcast notification the state
// belongs to one recipient.
func (f *Fanout) StateChanged(userID uuid.UUID, n *models.Notification, action string, readAt, dismissedAt *time.Time) {
	f.publish(UserChannel(userID), EventState, StateEvent{
		ID:          n.ID,
		Scope:       n.Scope,
		ReadAt:      readAt,
		DismissedAt: dismissedAt,
		Action:      action,
	})
}

func (f *Fanout) BulkChanged(userID uuid.UUID, action string, ids []uuid.UUID) {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	f.publish(UserChannel(userID), EventBulk, BulkEvent{Action: action, IDs: ids})
}
