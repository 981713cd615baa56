package message

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vanishlabs/vanish/internal/models"
	"github.com/vanishlabs/vanish/internal/realtime"
	"github.com/vanishlabs/vanish/internal/store"
)

type captureBroadcaster struct {
	payloads []any
}

func (b *captureBroadcaster) Publish(ctx context.Context, roomID, eventType string, payload any) error {
	b.payloads = append(b.payloads, payload)
	return nil
}

func (b *captureBroadcaster) Subscribe(ctx context.Context, roomID string) (realtime.Subscription, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*Service, *store.RedisStore, *captureBroadcaster, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := store.NewRedisStoreFromClient(client)
	b := &captureBroadcaster{}
	svc := NewService(s, b, 600*time.Second, zerolog.Nop())
	return svc, s, b, mr
}

func mustCreateRoom(t *testing.T, s *store.RedisStore, id string, ttl time.Duration) {
	t.Helper()
	if err := s.CreateRoom(context.Background(), id, ttl); err != nil {
		t.Fatal(err)
	}
}

func TestSendStoresAndPublishes(t *testing.T) {
	svc, s, b, _ := newTestService(t)
	ctx := context.Background()
	mustCreateRoom(t, s, "r1", time.Minute)

	msg, err := svc.Send(ctx, "r1", "cred-a", "alice", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID == "" || msg.Timestamp == 0 {
		t.Fatal("server-assigned fields missing")
	}

	if len(b.payloads) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(b.payloads))
	}
}

func TestSendGoneRoom(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Send(context.Background(), "nope", "cred-a", "alice", "hello")
	if !errors.Is(err, store.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestSendValidation(t *testing.T) {
	svc, s, _, _ := newTestService(t)
	ctx := context.Background()
	mustCreateRoom(t, s, "r1", time.Minute)

	cases := []struct {
		name   string
		sender string
		text   string
	}{
		{"empty sender", "", "hello"},
		{"empty text", "alice", ""},
		{"long sender", strings.Repeat("a", MaxSenderLen+1), "hello"},
		{"long text", "alice", strings.Repeat("x", MaxTextLen+1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Send(ctx, "r1", "cred-a", tc.sender, tc.text)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}

	// Nothing reached the store.
	msgs, err := svc.List(ctx, "r1", "cred-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("validation failure mutated history: %d messages", len(msgs))
	}
}

func TestSendReArmsTTL(t *testing.T) {
	svc, s, _, mr := newTestService(t)
	ctx := context.Background()
	mustCreateRoom(t, s, "r1", 600*time.Second)

	mr.FastForward(500 * time.Second)

	if _, err := svc.Send(ctx, "r1", "cred-a", "alice", "still here"); err != nil {
		t.Fatal(err)
	}

	ttl, err := s.GetTTL(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if ttl != 600*time.Second {
		t.Fatalf("expected TTL reset to 600s from send time, got %s", ttl)
	}

	// Repeated sends in quick succession never extend beyond the window.
	if _, err := svc.Send(ctx, "r1", "cred-a", "alice", "again"); err != nil {
		t.Fatal(err)
	}
	ttl, err = s.GetTTL(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if ttl > 600*time.Second {
		t.Fatalf("TTL grew beyond the configured window: %s", ttl)
	}
}

func TestListRedactsForeignCredentials(t *testing.T) {
	svc, s, _, _ := newTestService(t)
	ctx := context.Background()
	mustCreateRoom(t, s, "r1", time.Minute)

	if _, err := svc.Send(ctx, "r1", "cred-a", "alice", "mine"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Send(ctx, "r1", "cred-b", "bob", "theirs"); err != nil {
		t.Fatal(err)
	}

	msgs, err := svc.List(ctx, "r1", "cred-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}

	for _, msg := range msgs {
		switch msg.Text {
		case "mine":
			if msg.Credential != "cred-a" {
				t.Fatalf("own message lost its credential: %q", msg.Credential)
			}
		case "theirs":
			if msg.Credential != "" {
				t.Fatalf("foreign credential leaked: %q", msg.Credential)
			}
		}
	}
}

func TestBroadcastPayloadCarriesNoCredential(t *testing.T) {
	svc, s, b, _ := newTestService(t)
	ctx := context.Background()
	mustCreateRoom(t, s, "r1", time.Minute)

	if _, err := svc.Send(ctx, "r1", "cred-a", "alice", "hello"); err != nil {
		t.Fatal(err)
	}

	if len(b.payloads) != 1 {
		t.Fatalf("expected 1 event, got %d", len(b.payloads))
	}
	published, ok := b.payloads[0].(models.Message)
	if !ok {
		t.Fatalf("unexpected payload type %T", b.payloads[0])
	}
	if published.Credential != "" {
		t.Fatal("broadcast payload leaked the sender's credential")
	}
}
