// Package admission gatekeeps entry to rooms. It is the single point
// enforcing the capacity bound; every other component trusts that membership
// size never exceeds it.
package admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanishlabs/vanish/internal/metrics"
	"github.com/vanishlabs/vanish/internal/store"
	"github.com/vanishlabs/vanish/internal/token"
)

// Outcome of an admission decision.
type Outcome string

const (
	OutcomeAdmitted        Outcome = "admitted"
	OutcomeReEntry         Outcome = "re-entry"
	OutcomeRejectedFull    Outcome = "rejected-full"
	OutcomeRejectedMissing Outcome = "rejected-missing"
)

// Controller decides whether a visitor may join a room.
type Controller struct {
	store    store.RoomStore
	capacity int
}

// NewController creates an admission controller with the given capacity bound.
func NewController(s store.RoomStore, capacity int) *Controller {
	return &Controller{store: s, capacity: capacity}
}

// Admit runs the admission flow for a visitor. A visitor presenting a
// credential already in the room's membership re-enters with the same
// credential and no mutation. Otherwise a fresh credential is issued and
// added atomically against the capacity bound; the credential string is
// empty for rejected outcomes.
func (c *Controller) Admit(ctx context.Context, roomID, existing string) (string, Outcome, error) {
	if existing != "" {
		ok, err := c.store.IsMember(ctx, roomID, existing)
		if err != nil {
			return "", "", fmt.Errorf("admission: membership check: %w", err)
		}
		if ok {
			metrics.Admissions.WithLabelValues(string(OutcomeReEntry)).Inc()
			return existing, OutcomeReEntry, nil
		}
	}

	cred, err := token.Issue()
	if err != nil {
		return "", "", fmt.Errorf("admission: %w", err)
	}

	err = c.store.AddMember(ctx, roomID, cred, c.capacity)
	switch {
	case errors.Is(err, store.ErrRoomFull):
		metrics.Admissions.WithLabelValues(string(OutcomeRejectedFull)).Inc()
		return "", OutcomeRejectedFull, nil
	case errors.Is(err, store.ErrRoomNotFound):
		metrics.Admissions.WithLabelValues(string(OutcomeRejectedMissing)).Inc()
		return "", OutcomeRejectedMissing, nil
	case err != nil:
		return "", "", fmt.Errorf("admission: add member: %w", err)
	}

	metrics.Admissions.WithLabelValues(string(OutcomeAdmitted)).Inc()
	return cred, OutcomeAdmitted, nil
}
