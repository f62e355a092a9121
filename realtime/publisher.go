package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Channel names. Every user has a private channel; broadcast notifications
// additionally go to the shared system channel.
const (
	SystemChannel     = "notifications.system"
	userChannelPrefix = "notifications.user."
	ChannelPattern    = "notifications.*"
)

func UserChannel(userID uuid.UUID) string {
	return userChannelPrefix + userID.String()
}

const (
	EventCreated = "notification.created"
	EventState   = "notification.state"
	EventBulk    = "notification.bulk"
)

// Envelope is the wire frame published to a channel.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Publisher pushes one realtime message to a channel. Implementations must
// treat delivery as best-effort; durability lives in the database, not here.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload interface{}) error
}

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel, event string, payload interface{}) error {
	body, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		return errors.Wrap(err, "marshal realtime envelope")
	}
	if err := p.client.Publish(ctx, channel, body).Err(); err != nil {
		return errors.Wrap(err, "publish to "+channel)
	}
	return nil
}

func InitRedis(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}
