package realtime

import (
	"context"
	"encoding/json"
)

// Event types published on room channels.
const (
	EventMessage = "chat.message"
	EventDestroy = "chat.destroy"
)

// Event is the wire envelope published on a room's channel. Delivery is
// at-least-once to currently-subscribed listeners and events are not
// persisted; the message history is the authoritative source for content,
// so clients re-fetch history on receipt rather than trusting the payload.
type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DestroyPayload is the payload of a chat.destroy event.
type DestroyPayload struct {
	IsDestroyed bool `json:"isDestroyed"`
}

// Broadcaster fans lifecycle and message events out to a room's connected
// participants.
type Broadcaster interface {
	Publish(ctx context.Context, roomID, eventType string, payload any) error
	Subscribe(ctx context.Context, roomID string) (Subscription, error)
}

// Subscription is a cancellable per-room event stream. The Events channel is
// closed when the subscription ends.
type Subscription interface {
	Events() <-chan Event
	Close() error
}
