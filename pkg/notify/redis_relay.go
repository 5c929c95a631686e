package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go-panel-backend/pkg/logger"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const DefaultChannel = "panel:notify"

// RedisRelay mirrors hub traffic through a Redis pub/sub channel so that
// every instance sees changes made on the others.
type RedisRelay struct {
	client  *goredis.Client
	channel string
	origin  string
}

func NewRedisRelay(client *goredis.Client, channel string) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
	}
}

func (r *RedisRelay) Publish(ctx context.Context, msg Message) error {
	msg.Origin = r.origin
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode relay message: %w", err)
	}
	return r.client.Publish(ctx, r.channel, raw).Err()
}

// Run forwards remote messages into hub until ctx is done. Messages that
// originated here are skipped since Publish already delivered them locally.
func (r *RedisRelay) Run(ctx context.Context, hub *Hub) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis relay subscribe: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg, remote := r.decode(m.Payload)
			if remote {
				hub.Deliver(msg.Topic, msg.Payload)
			}
		}
	}
}

func (r *RedisRelay) decode(raw string) (Message, bool) {
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		logger.Log.Warn("redis relay dropped malformed message", "error", err)
		return msg, false
	}
	return msg, msg.Origin != r.origin
}
