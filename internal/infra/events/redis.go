package events

import (
	"context"
	"encoding/json"
	"fmt"

	"outreach_scheduler/internal/domain/message"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher broadcasts status changes over Redis pub/sub.
type RedisPublisher struct {
	rdb     redis.Cmdable
	channel string
}

func NewRedisPublisher(rdb redis.Cmdable) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: message.TopicStatusChanged}
}

func (p *RedisPublisher) Publish(ctx context.Context, evt message.StatusChanged) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("error encoding status change: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("error publishing to redis channel %s: %w", p.channel, err)
	}
	return nil
}
