package store

import (
	"context"
	"errors"
	"time"

	"github.com/vanishlabs/vanish/internal/models"
)

// Sentinel errors returned by RoomStore implementations. A room that has
// expired and a room that never existed are indistinguishable by design;
// both surface as ErrRoomNotFound.
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room at capacity")
)

// RoomStore is the persistence boundary for rooms and their message history.
// Every key carries an independent expiry countdown; absence of a key upon
// lookup is the expiry signal.
type RoomStore interface {
	// Connection management
	Close() error
	Ping(ctx context.Context) error

	// Room lifecycle
	CreateRoom(ctx context.Context, id string, ttl time.Duration) error
	RoomExists(ctx context.Context, id string) (bool, error)
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	GetTTL(ctx context.Context, id string) (time.Duration, error)
	// ExtendTTL resets the countdown for the whole key family. A room that
	// has already expired is never resurrected.
	ExtendTTL(ctx context.Context, id string, ttl time.Duration) error
	// DeleteRoom removes metadata, membership and message history as one
	// unit; no message data stays reachable after the room is reported gone.
	DeleteRoom(ctx context.Context, id string) error

	// Membership. AddMember executes the membership check, the capacity
	// check and the insert as one indivisible operation relative to all
	// other concurrent AddMember calls on the same room.
	GetMembership(ctx context.Context, id string) ([]string, error)
	IsMember(ctx context.Context, id, credential string) (bool, error)
	AddMember(ctx context.Context, id, credential string, capacity int) error

	// Message history
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, id string) ([]models.Message, error)
}
