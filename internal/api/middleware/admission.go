package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vanishlabs/vanish/internal/admission"
	"github.com/vanishlabs/vanish/internal/store"
)

// CredentialCookie is the cookie carrying a visitor's per-room credential.
const CredentialCookie = "x-auth-token"

type contextKey string

const credentialKey contextKey = "credential"

// CredentialFromContext returns the credential attached by the admission
// boundary, or "" if the request never passed through it.
func CredentialFromContext(ctx context.Context) string {
	cred, _ := ctx.Value(credentialKey).(string)
	return cred
}

// Gatekeeper intercepts room visits and runs the admission flow: returning
// members pass through untouched, new visitors get a credential cookie, and
// rejected visitors are redirected home with a reason code.
type Gatekeeper struct {
	ctrl         *admission.Controller
	secureCookie bool
}

// NewGatekeeper creates the admission boundary middleware. secureCookie
// should be true whenever the service is reached over TLS.
func NewGatekeeper(ctrl *admission.Controller, secureCookie bool) *Gatekeeper {
	return &Gatekeeper{ctrl: ctrl, secureCookie: secureCookie}
}

// Middleware admits the visitor to the room named by the {id} URL parameter.
func (g *Gatekeeper) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "id")

		var existing string
		if c, err := r.Cookie(CredentialCookie); err == nil {
			existing = c.Value
		}

		cred, outcome, err := g.ctrl.Admit(r.Context(), roomID, existing)
		if err != nil {
			http.Error(w, `{"error":"admission failed"}`, http.StatusInternalServerError)
			return
		}

		switch outcome {
		case admission.OutcomeRejectedFull:
			http.Redirect(w, r, "/?error=room-is-full", http.StatusSeeOther)
			return
		case admission.OutcomeRejectedMissing:
			http.Redirect(w, r, "/?error=room-not-found", http.StatusSeeOther)
			return
		case admission.OutcomeAdmitted:
			http.SetCookie(w, &http.Cookie{
				Name:     CredentialCookie,
				Value:    cred,
				Path:     "/",
				HttpOnly: true,
				Secure:   g.secureCookie,
				SameSite: http.SameSiteStrictMode,
			})
		}

		ctx := context.WithValue(r.Context(), credentialKey, cred)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MemberAuth guards room-scoped API routes: the caller must present a
// credential cookie, and if the room is still alive the credential must be in
// its membership set. Requests for gone rooms pass through so the handlers
// can apply their own gone-room semantics (TTL 0, idempotent destroy,
// not-found history).
type MemberAuth struct {
	store store.RoomStore
}

// NewMemberAuth creates the member boundary middleware.
func NewMemberAuth(s store.RoomStore) *MemberAuth {
	return &MemberAuth{store: s}
}

// RequireMember returns the middleware.
func (m *MemberAuth) RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("roomid")
		if roomID == "" {
			http.Error(w, `{"error":"roomid is required"}`, http.StatusBadRequest)
			return
		}

		c, err := r.Cookie(CredentialCookie)
		if err != nil || c.Value == "" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}

		exists, err := m.store.RoomExists(r.Context(), roomID)
		if err != nil {
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		if exists {
			ok, err := m.store.IsMember(r.Context(), roomID, c.Value)
			if err != nil {
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}
			if !ok {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
		}

		ctx := context.WithValue(r.Context(), credentialKey, c.Value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
