package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vanishlabs/vanish/internal/store"
)

// CreateRoomResponse represents the room creation response.
type CreateRoomResponse struct {
	ID string `json:"id"`
}

// TTLResponse represents the remaining-lifetime response.
type TTLResponse struct {
	TTL int64 `json:"ttl"`
}

// CreateRoom handles room creation.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := h.rooms.Create(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("room creation failed")
		h.Error(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	h.JSON(w, http.StatusCreated, CreateRoomResponse{ID: id})
}

// RoomTTL reports the room's remaining lifetime; 0 means the room is gone.
func (h *Handler) RoomTTL(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomid")

	ttl, err := h.rooms.RemainingTTL(r.Context(), roomID)
	if err != nil {
		h.logger.Error().Err(err).Str("room", roomID).Msg("ttl query failed")
		h.Error(w, http.StatusInternalServerError, "failed to query ttl")
		return
	}

	h.JSON(w, http.StatusOK, TTLResponse{TTL: ttl})
}

// DestroyRoom ends a room early. Always succeeds for the initiating client,
// even when the room already expired on its own.
func (h *Handler) DestroyRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomid")

	if err := h.rooms.Destroy(r.Context(), roomID); err != nil {
		h.logger.Error().Err(err).Str("room", roomID).Msg("destroy failed")
		h.Error(w, http.StatusInternalServerError, "failed to destroy room")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RoomSnapshot serves the gatekept room view: the requester has already been
// admitted by the middleware by the time this runs.
func (h *Handler) RoomSnapshot(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	snapshot, err := h.store.GetRoom(r.Context(), roomID)
	if errors.Is(err, store.ErrRoomNotFound) {
		// The room expired between admission and this read.
		h.Error(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("room", roomID).Msg("snapshot failed")
		h.Error(w, http.StatusInternalServerError, "failed to load room")
		return
	}

	h.JSON(w, http.StatusOK, snapshot)
}
