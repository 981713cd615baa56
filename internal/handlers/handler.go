package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/vanishlabs/vanish/internal/message"
	"github.com/vanishlabs/vanish/internal/realtime"
	"github.com/vanishlabs/vanish/internal/room"
	"github.com/vanishlabs/vanish/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	rooms     *room.Service
	messages  *message.Service
	store     store.RoomStore
	broadcast realtime.Broadcaster
	logger    zerolog.Logger
}

// NewHandler creates a new Handler with the given services.
func NewHandler(rooms *room.Service, messages *message.Service, st store.RoomStore, broadcast realtime.Broadcaster, logger zerolog.Logger) *Handler {
	return &Handler{
		rooms:     rooms,
		messages:  messages,
		store:     st,
		broadcast: broadcast,
		logger:    logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
