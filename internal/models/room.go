package models

// Room is a point-in-time snapshot of a live room. Membership is held
// server-side only and never serialized to clients.
type Room struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"` // Unix ms
	TTL       int64  `json:"ttl"`        // seconds remaining
}
