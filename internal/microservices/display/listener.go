package display

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/notify"
)

// Listener relays envelopes published on the displays:* Redis channels into the hub.
type Listener struct {
	rdb *redis.Client
	hub *Hub
	log *zap.Logger
}

func NewListener(rdb *redis.Client, hub *Hub, log *zap.Logger) *Listener {
	return &Listener{rdb: rdb, hub: hub, log: log}
}

func (l *Listener) Run(ctx context.Context) error {
	ps := l.rdb.PSubscribe(ctx, notify.ChannelPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	l.log.Info("display_listener_subscribed", zap.String("pattern", notify.ChannelPrefix+"*"))

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return errors.New("redis subscription closed")
			}
			l.dispatch(m.Channel, m.Payload)
		}
	}
}

func (l *Listener) dispatch(channel, payload string) {
	var env notify.Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		l.log.Warn("display_event_malformed", zap.String("channel", channel), zap.Error(err))
		return
	}
	if env.RestaurantID == "" || env.Type == "" {
		l.log.Warn("display_event_incomplete", zap.String("channel", channel))
		return
	}
	n := l.hub.Broadcast(env)
	l.log.Debug("display_event_relayed",
		zap.String("type", env.Type),
		zap.String("restaurant_id", env.RestaurantID),
		zap.Int("sessions", n))
}
