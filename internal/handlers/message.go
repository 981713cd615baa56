package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vanishlabs/vanish/internal/api/middleware"
	"github.com/vanishlabs/vanish/internal/message"
	"github.com/vanishlabs/vanish/internal/models"
	"github.com/vanishlabs/vanish/internal/store"
)

// PostMessageRequest represents the message send request.
type PostMessageRequest struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// PostMessageResponse represents the message send response.
type PostMessageResponse struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// ListMessagesResponse represents the history response. Credentials appear
// only on the requester's own messages.
type ListMessagesResponse struct {
	Messages []models.Message `json:"messages"`
}

// PostMessage handles sending a message to a room.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomid")
	credential := middleware.CredentialFromContext(r.Context())

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := h.messages.Send(r.Context(), roomID, credential, req.Sender, req.Text)
	switch {
	case errors.Is(err, message.ErrValidation):
		h.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, store.ErrRoomNotFound):
		h.Error(w, http.StatusNotFound, "room not found")
		return
	case err != nil:
		h.logger.Error().Err(err).Str("room", roomID).Msg("message send failed")
		h.Error(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	h.JSON(w, http.StatusCreated, PostMessageResponse{ID: msg.ID, Timestamp: msg.Timestamp})
}

// ListMessages handles fetching a room's history.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomid")
	credential := middleware.CredentialFromContext(r.Context())

	msgs, err := h.messages.List(r.Context(), roomID, credential)
	switch {
	case errors.Is(err, store.ErrRoomNotFound):
		h.Error(w, http.StatusNotFound, "room not found")
		return
	case err != nil:
		h.logger.Error().Err(err).Str("room", roomID).Msg("message list failed")
		h.Error(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	h.JSON(w, http.StatusOK, ListMessagesResponse{Messages: msgs})
}
