package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vanishlabs/vanish/internal/models"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStoreFromClient(client), mr
}

func TestCreateRoomSetsTTL(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRoom(ctx, "r1", 600*time.Second); err != nil {
		t.Fatal(err)
	}

	ttl, err := s.GetTTL(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if ttl != 600*time.Second {
		t.Fatalf("expected 600s TTL, got %s", ttl)
	}
}

func TestGetRoomSnapshot(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	before := time.Now().UnixMilli()
	if err := s.CreateRoom(ctx, "r1", 600*time.Second); err != nil {
		t.Fatal(err)
	}

	snap, err := s.GetRoom(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if snap.ID != "r1" {
		t.Fatalf("unexpected id %q", snap.ID)
	}
	if snap.CreatedAt < before {
		t.Fatalf("createdAt %d predates creation", snap.CreatedAt)
	}
	if snap.TTL != 600 {
		t.Fatalf("expected ttl 600, got %d", snap.TTL)
	}

	if _, err := s.GetRoom(ctx, "nope"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestGetTTLGoneRoom(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.GetTTL(context.Background(), "nope")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestAddMemberCapacity(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRoom(ctx, "r1", time.Minute); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		if err := s.AddMember(ctx, "r1", fmt.Sprintf("cred-%d", i), 4); err != nil {
			t.Fatalf("member %d: %v", i, err)
		}
	}

	err := s.AddMember(ctx, "r1", "cred-overflow", 4)
	if !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}

	members, err := s.GetMembership(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 4 {
		t.Fatalf("expected 4 members, got %d", len(members))
	}
}

func TestAddMemberGoneRoom(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.AddMember(context.Background(), "nope", "cred", 4)
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestAddMemberIdempotentForExisting(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRoom(ctx, "r1", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMember(ctx, "r1", "cred-a", 4); err != nil {
		t.Fatal(err)
	}
	// Same credential again does not consume a seat.
	if err := s.AddMember(ctx, "r1", "cred-a", 4); err != nil {
		t.Fatal(err)
	}

	members, err := s.GetMembership(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(members))
	}
}

// Concurrent admissions on a fresh room must never overshoot the capacity
// bound, regardless of interleaving.
func TestAddMemberConcurrent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRoom(ctx, "r1", time.Minute); err != nil {
		t.Fatal(err)
	}

	const attempts = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted, full := 0, 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.AddMember(ctx, "r1", fmt.Sprintf("cred-%d", i), 4)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, ErrRoomFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if admitted != 4 {
		t.Fatalf("expected exactly 4 admitted, got %d", admitted)
	}
	if full != attempts-4 {
		t.Fatalf("expected %d rejections, got %d", attempts-4, full)
	}

	members, err := s.GetMembership(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 4 {
		t.Fatalf("membership overshoot: %d members", len(members))
	}
}

func TestExtendTTLResetsWindow(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRoom(ctx, "r1", 600*time.Second); err != nil {
		t.Fatal(err)
	}

	mr.FastForward(500 * time.Second)

	if err := s.ExtendTTL(ctx, "r1", 600*time.Second); err != nil {
		t.Fatal(err)
	}

	ttl, err := s.GetTTL(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if ttl != 600*time.Second {
		t.Fatalf("expected TTL re-armed to 600s, got %s", ttl)
	}
}

func TestExtendTTLNoResurrection(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRoom(ctx, "r1", 10*time.Second); err != nil {
		t.Fatal(err)
	}

	mr.FastForward(11 * time.Second)

	err := s.ExtendTTL(ctx, "r1", 600*time.Second)
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	exists, err := s.RoomExists(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("expired room came back to life")
	}
}

func TestDeleteRoomRemovesKeyFamily(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRoom(ctx, "r1", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMember(ctx, "r1", "cred-a", 4); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendMessage(ctx, &models.Message{ID: "m1", RoomID: "r1", Text: "hi"}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteRoom(ctx, "r1"); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"room:r1:meta", "room:r1:members", "room:r1:messages"} {
		if mr.Exists(key) {
			t.Fatalf("key %s survived deletion", key)
		}
	}

	if _, err := s.ListMessages(ctx, "r1"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound after delete, got %v", err)
	}
}

func TestAppendAndListMessagesOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRoom(ctx, "r1", time.Minute); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		msg := &models.Message{
			ID:        fmt.Sprintf("m%d", i),
			RoomID:    "r1",
			Sender:    "alice",
			Text:      fmt.Sprintf("message %d", i),
			Timestamp: time.Now().UnixMilli(),
		}
		if err := s.AppendMessage(ctx, msg); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := s.ListMessages(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	for i, msg := range msgs {
		if msg.ID != fmt.Sprintf("m%d", i) {
			t.Fatalf("message %d out of order: %s", i, msg.ID)
		}
	}
}

func TestAppendMessageGoneRoom(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.AppendMessage(context.Background(), &models.Message{ID: "m1", RoomID: "nope"})
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

// History must not outlive the room: the history key's expiry follows the
// meta key's window.
func TestMessageHistoryExpiresWithRoom(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRoom(ctx, "r1", 10*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendMessage(ctx, &models.Message{ID: "m1", RoomID: "r1", Text: "hi"}); err != nil {
		t.Fatal(err)
	}

	mr.FastForward(11 * time.Second)

	if mr.Exists("room:r1:messages") {
		t.Fatal("message history survived room expiry")
	}
}
