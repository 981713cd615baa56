package models

// Message is a chat message stored in a room's history.
// Credential is the submitting visitor's token. It is kept server-side for
// ownership marking and cleared before the message is returned to anyone
// whose own credential does not match.
type Message struct {
	ID         string `json:"id"` // ULID
	Sender     string `json:"sender"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"` // Unix ms
	RoomID     string `json:"roomid"`
	Credential string `json:"credential,omitempty"`
}
