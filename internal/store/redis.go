package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vanishlabs/vanish/internal/models"
)

// RedisStore implements RoomStore on Redis. All room state lives in a small
// key family per room, each key TTL-bearing so the room vanishes wholesale.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client. Used by tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the underlying connection for components that share it.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// roomMetaKey returns the key holding a room's metadata hash.
func roomMetaKey(id string) string {
	return fmt.Sprintf("room:%s:meta", id)
}

// roomMembersKey returns the key for a room's membership set.
func roomMembersKey(id string) string {
	return fmt.Sprintf("room:%s:members", id)
}

// roomMessagesKey returns the key for a room's message history list.
func roomMessagesKey(id string) string {
	return fmt.Sprintf("room:%s:messages", id)
}

// addMemberScript admits a credential into a room. The existence check, the
// capacity check and the insert run server-side as one unit, so concurrent
// admissions on the same room are linearized by Redis. A plain read-then-write
// sequence would over-admit under concurrent joins.
//
// KEYS[1] = meta, KEYS[2] = members; ARGV[1] = credential, ARGV[2] = capacity.
// Returns 0 added, 1 already a member, -1 room gone, -2 at capacity.
var addMemberScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
if redis.call("SISMEMBER", KEYS[2], ARGV[1]) == 1 then
  return 1
end
if redis.call("SCARD", KEYS[2]) >= tonumber(ARGV[2]) then
  return -2
end
redis.call("SADD", KEYS[2], ARGV[1])
local ttl = redis.call("TTL", KEYS[1])
if ttl > 0 then
  redis.call("EXPIRE", KEYS[2], ttl)
end
return 0
`)

// extendTTLScript re-arms the countdown on the whole key family, gated on the
// meta key still existing so an expired room cannot be resurrected.
// KEYS[1..3] = meta, members, messages; ARGV[1] = seconds.
var extendTTLScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("EXPIRE", KEYS[1], ARGV[1])
redis.call("EXPIRE", KEYS[2], ARGV[1])
redis.call("EXPIRE", KEYS[3], ARGV[1])
return 1
`)

// appendMessageScript appends to history only while the room is alive, and
// keeps the history key's expiry aligned with the room's remaining window.
// KEYS[1] = meta, KEYS[2] = messages; ARGV[1] = serialized message.
// Returns 0 if the room is gone.
var appendMessageScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("RPUSH", KEYS[2], ARGV[1])
local ttl = redis.call("TTL", KEYS[1])
if ttl > 0 then
  redis.call("EXPIRE", KEYS[2], ttl)
end
return 1
`)

// CreateRoom initializes room metadata with an empty membership and arms the
// expiry countdown.
func (s *RedisStore) CreateRoom(ctx context.Context, id string, ttl time.Duration) error {
	key := roomMetaKey(id)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, "createdAt", time.Now().UnixMilli())
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// GetRoom returns a snapshot of a live room's metadata.
func (s *RedisStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	pipe := s.client.Pipeline()
	createdCmd := pipe.HGet(ctx, roomMetaKey(id), "createdAt")
	ttlCmd := pipe.TTL(ctx, roomMetaKey(id))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	createdAt, err := createdCmd.Int64()
	if err == redis.Nil {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	ttl := ttlCmd.Val()
	if ttl < 0 {
		return nil, ErrRoomNotFound
	}

	return &models.Room{
		ID:        id,
		CreatedAt: createdAt,
		TTL:       int64(ttl.Seconds()),
	}, nil
}

// RoomExists reports whether a room is alive.
func (s *RedisStore) RoomExists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, roomMetaKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetTTL returns the room's remaining lifetime.
func (s *RedisStore) GetTTL(ctx context.Context, id string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, roomMetaKey(id)).Result()
	if err != nil {
		return 0, err
	}
	// -2: key missing, -1: no expiry set (never the case for live rooms)
	if ttl < 0 {
		return 0, ErrRoomNotFound
	}
	return ttl, nil
}

// ExtendTTL resets the countdown for the room's key family.
func (s *RedisStore) ExtendTTL(ctx context.Context, id string, ttl time.Duration) error {
	keys := []string{roomMetaKey(id), roomMembersKey(id), roomMessagesKey(id)}
	n, err := extendTTLScript.Run(ctx, s.client, keys, int64(ttl.Seconds())).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// DeleteRoom removes all room state in a single DEL.
func (s *RedisStore) DeleteRoom(ctx context.Context, id string) error {
	return s.client.Del(ctx, roomMetaKey(id), roomMembersKey(id), roomMessagesKey(id)).Err()
}

// GetMembership returns the room's credential set.
func (s *RedisStore) GetMembership(ctx context.Context, id string) ([]string, error) {
	exists, err := s.RoomExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRoomNotFound
	}
	return s.client.SMembers(ctx, roomMembersKey(id)).Result()
}

// IsMember reports whether a credential belongs to the room. A gone room has
// no members.
func (s *RedisStore) IsMember(ctx context.Context, id, credential string) (bool, error) {
	return s.client.SIsMember(ctx, roomMembersKey(id), credential).Result()
}

// AddMember atomically admits a credential, enforcing the capacity bound.
func (s *RedisStore) AddMember(ctx context.Context, id, credential string, capacity int) error {
	keys := []string{roomMetaKey(id), roomMembersKey(id)}
	n, err := addMemberScript.Run(ctx, s.client, keys, credential, capacity).Int()
	if err != nil {
		return err
	}
	switch n {
	case -1:
		return ErrRoomNotFound
	case -2:
		return ErrRoomFull
	}
	return nil
}

// AppendMessage appends a message to the room's history in arrival order.
func (s *RedisStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	keys := []string{roomMetaKey(msg.RoomID), roomMessagesKey(msg.RoomID)}
	n, err := appendMessageScript.Run(ctx, s.client, keys, string(data)).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// ListMessages returns the room's full history in arrival order.
func (s *RedisStore) ListMessages(ctx context.Context, id string) ([]models.Message, error) {
	exists, err := s.RoomExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	results, err := s.client.LRange(ctx, roomMessagesKey(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for _, data := range results {
		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}
