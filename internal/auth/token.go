package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// GeneratePlayerToken returns an opaque capability token for the public
// player endpoint. The token is the only credential the player surface
// holds, so it must be unguessable.
func GeneratePlayerToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return "cl" + ts + hex.EncodeToString(b), nil
}
