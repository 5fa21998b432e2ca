package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// InvalidationMessage announces cache keys made stale by a mutation in
// another process. Keys are key prefixes.
type InvalidationMessage struct {
	Origin    string     `json:"origin"`
	Keys      [][]string `json:"keys"`
	Timestamp time.Time  `json:"timestamp"`
}

var errNoKeys = errors.New("invalidation message carries no keys")

func NewInvalidationMessage(origin string, keys [][]string) *InvalidationMessage {
	return &InvalidationMessage{
		Origin:    origin,
		Keys:      keys,
		Timestamp: time.Now(),
	}
}

func (m *InvalidationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InvalidationMessageFromJSON decodes a message and rejects one without keys.
func InvalidationMessageFromJSON(data []byte) (*InvalidationMessage, error) {
	var msg InvalidationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if len(msg.Keys) == 0 {
		return nil, errNoKeys
	}
	return &msg, nil
}
