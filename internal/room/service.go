// Package room manages the time-bounded existence of rooms: creation with
// the default TTL, remaining-lifetime queries and explicit destruction.
package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vanishlabs/vanish/internal/metrics"
	"github.com/vanishlabs/vanish/internal/realtime"
	"github.com/vanishlabs/vanish/internal/store"
	"github.com/vanishlabs/vanish/internal/token"
)

// Service is the room lifecycle manager.
type Service struct {
	store     store.RoomStore
	broadcast realtime.Broadcaster
	ttl       time.Duration
	logger    zerolog.Logger
}

// NewService creates a lifecycle manager with the given default TTL.
func NewService(s store.RoomStore, b realtime.Broadcaster, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{store: s, broadcast: b, ttl: ttl, logger: logger}
}

// Create provisions a fresh room with empty membership and the default TTL.
func (s *Service) Create(ctx context.Context) (string, error) {
	id, err := token.RoomID()
	if err != nil {
		return "", fmt.Errorf("room: %w", err)
	}

	if err := s.store.CreateRoom(ctx, id, s.ttl); err != nil {
		return "", fmt.Errorf("room: create: %w", err)
	}

	metrics.RoomsCreated.Inc()
	s.logger.Info().Str("room", id).Dur("ttl", s.ttl).Msg("room created")
	return id, nil
}

// RemainingTTL returns the room's remaining lifetime in whole seconds.
// Expired and never-existed rooms both report 0; callers treat 0 as gone.
func (s *Service) RemainingTTL(ctx context.Context, id string) (int64, error) {
	ttl, err := s.store.GetTTL(ctx, id)
	if errors.Is(err, store.ErrRoomNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("room: ttl: %w", err)
	}

	secs := int64(ttl.Seconds())
	if secs < 0 {
		secs = 0
	}
	return secs, nil
}

// Destroy ends a room early. The destruction event is published before any
// state is deleted, so subscribers are notified while the room is still
// addressable for final reads. Destroying an already-gone room is a no-op
// success: a passive expiry racing an explicit destroy must not surface an
// error to the user.
func (s *Service) Destroy(ctx context.Context, id string) error {
	exists, err := s.store.RoomExists(ctx, id)
	if err != nil {
		return fmt.Errorf("room: destroy: %w", err)
	}
	if !exists {
		return nil
	}

	if err := s.broadcast.Publish(ctx, id, realtime.EventDestroy, realtime.DestroyPayload{IsDestroyed: true}); err != nil {
		// Deleting without the broadcast would strand subscribers on an
		// unexplained not-found; leave the room to its TTL instead.
		return fmt.Errorf("room: destroy broadcast: %w", err)
	}

	if err := s.store.DeleteRoom(ctx, id); err != nil {
		return fmt.Errorf("room: delete: %w", err)
	}

	metrics.RoomsDestroyed.Inc()
	s.logger.Info().Str("room", id).Msg("room destroyed")
	return nil
}
