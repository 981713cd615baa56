package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vanishlabs/vanish/internal/metrics"
)

// subscriberBuffer bounds the per-subscriber event queue. Events are liveness
// signals, not content; a subscriber that cannot keep up loses events and
// reconciles by re-fetching history.
const subscriberBuffer = 16

// RedisBroadcaster implements Broadcaster on Redis pub/sub, one channel per
// room.
type RedisBroadcaster struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisBroadcaster creates a broadcaster on the given connection.
func NewRedisBroadcaster(client *redis.Client, logger zerolog.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, logger: logger}
}

// roomChannel returns the pub/sub channel name for a room.
func roomChannel(roomID string) string {
	return fmt.Sprintf("room:%s:events", roomID)
}

// Publish emits an event on the room's channel.
func (b *RedisBroadcaster) Publish(ctx context.Context, roomID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("realtime: marshal payload: %w", err)
	}

	evt := Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		Payload: body,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("realtime: marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, roomChannel(roomID), data).Err(); err != nil {
		return fmt.Errorf("realtime: publish: %w", err)
	}

	metrics.EventsPublished.WithLabelValues(eventType).Inc()
	return nil
}

// Subscribe opens an event stream for a room. The stream stays open until
// Close is called or the context is cancelled.
func (b *RedisBroadcaster) Subscribe(ctx context.Context, roomID string) (Subscription, error) {
	ps := b.client.Subscribe(ctx, roomChannel(roomID))

	// Force the subscription onto the wire before returning, so callers do
	// not miss events published immediately after Subscribe returns.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("realtime: subscribe: %w", err)
	}

	sub := &redisSubscription{
		ps:     ps,
		events: make(chan Event, subscriberBuffer),
	}

	go sub.pump(b.logger.With().Str("room", roomID).Logger())

	return sub, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	events chan Event
}

// pump decodes raw pub/sub messages into the event channel until the
// underlying subscription closes.
func (s *redisSubscription) pump(logger zerolog.Logger) {
	defer close(s.events)

	for msg := range s.ps.Channel() {
		var evt Event
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			logger.Warn().Err(err).Msg("dropping malformed event")
			continue
		}

		select {
		case s.events <- evt:
		default:
			logger.Warn().Str("event", evt.Type).Msg("slow subscriber, dropping event")
		}
	}
}

func (s *redisSubscription) Events() <-chan Event {
	return s.events
}

func (s *redisSubscription) Close() error {
	return s.ps.Close()
}
