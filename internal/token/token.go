package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	credentialBytes = 24 // 192 bits
	roomIDBytes     = 12
)

// Issue generates an opaque per-visitor credential. 192 bits of entropy makes
// collisions negligible without any central coordination.
func Issue() (string, error) {
	return generate(credentialBytes)
}

// RoomID generates a URL-safe room identifier.
func RoomID() (string, error) {
	return generate(roomIDBytes)
}

func generate(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token: failed to generate: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
