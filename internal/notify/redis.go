package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ChannelPrefix is followed by the restaurant id; the display gateway
// pattern-subscribes to ChannelPrefix + "*".
const ChannelPrefix = "displays:"

func Channel(restaurantID uuid.UUID) string { return ChannelPrefix + restaurantID.String() }

type RedisNotifier struct {
	rdb redis.Cmdable
}

func NewRedisNotifier(rdb redis.Cmdable) *RedisNotifier { return &RedisNotifier{rdb: rdb} }

func (n *RedisNotifier) Publish(ctx context.Context, restaurantID uuid.UUID, eventType string, payload any) error {
	_, body, err := encode(restaurantID, eventType, payload)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, Channel(restaurantID), body).Err(); err != nil {
		return deliveryError("redis", err)
	}
	return nil
}
