package uid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSubscriberID returns a random ID for a websocket subscriber
func GenerateSubscriberID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate subscriber ID: %v", err)
	}
	return hex.EncodeToString(bytes), nil
}
