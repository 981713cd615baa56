// Package message validates, stores and fans out chat messages.
package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/vanishlabs/vanish/internal/metrics"
	"github.com/vanishlabs/vanish/internal/models"
	"github.com/vanishlabs/vanish/internal/realtime"
	"github.com/vanishlabs/vanish/internal/store"
)

// Input bounds, enforced before any mutation.
const (
	MaxSenderLen = 100
	MaxTextLen   = 1000
)

// ErrValidation marks oversized or malformed input, rejected before touching
// the store.
var ErrValidation = errors.New("validation failed")

// Service is the message service for live rooms.
type Service struct {
	store     store.RoomStore
	broadcast realtime.Broadcaster
	ttl       time.Duration // full window re-armed on each send
	logger    zerolog.Logger
}

// NewService creates a message service. ttl is the room window re-armed on
// qualifying activity.
func NewService(s store.RoomStore, b realtime.Broadcaster, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{store: s, broadcast: b, ttl: ttl, logger: logger}
}

// Send appends a message to a room's history, publishes it to connected
// participants and re-arms the room's TTL to the full window measured from
// now. Activity never grants time beyond the configured window.
func (s *Service) Send(ctx context.Context, roomID, credential, sender, text string) (*models.Message, error) {
	if err := validate(sender, text); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:         ulid.Make().String(),
		Sender:     sender,
		Text:       text,
		Timestamp:  time.Now().UnixMilli(),
		RoomID:     roomID,
		Credential: credential,
	}

	// The append verifies room existence atomically, so a send racing the
	// room's expiry cannot strand a message in a dead room.
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("message: append: %w", err)
	}

	// The broadcast carries no credential; history is the authoritative
	// source and clients re-fetch it on receipt.
	public := *msg
	public.Credential = ""
	if err := s.broadcast.Publish(ctx, roomID, realtime.EventMessage, public); err != nil {
		// The message is already durable in history. Subscribers reconcile
		// on their next fetch.
		s.logger.Warn().Err(err).Str("room", roomID).Msg("message broadcast failed")
	}

	if err := s.store.ExtendTTL(ctx, roomID, s.ttl); err != nil && !errors.Is(err, store.ErrRoomNotFound) {
		s.logger.Warn().Err(err).Str("room", roomID).Msg("ttl re-arm failed")
	}

	metrics.MessagesPosted.Inc()
	return msg, nil
}

// List returns the room's history in arrival order. Each message's credential
// is present only when it equals the requesting credential, so a participant
// can recognize their own messages without learning anyone else's token.
func (s *Service) List(ctx context.Context, roomID, credential string) ([]models.Message, error) {
	msgs, err := s.store.ListMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}

	for i := range msgs {
		if msgs[i].Credential != credential {
			msgs[i].Credential = ""
		}
	}
	return msgs, nil
}

func validate(sender, text string) error {
	if sender == "" {
		return fmt.Errorf("%w: sender is required", ErrValidation)
	}
	if len(sender) > MaxSenderLen {
		return fmt.Errorf("%w: sender exceeds %d characters", ErrValidation, MaxSenderLen)
	}
	if text == "" {
		return fmt.Errorf("%w: text is required", ErrValidation)
	}
	if len(text) > MaxTextLen {
		return fmt.Errorf("%w: text exceeds %d characters", ErrValidation, MaxTextLen)
	}
	return nil
}
