package session

import (
	"context"
	"errors"
)

// Keys under which the session is persisted.
const (
	KeyAuthToken = "auth_token"
	KeyUserData  = "user_data"
)

var (
	ErrStoreClosed = errors.New("session store closed")
	// ErrCorruptSession is returned when persisted data cannot be decoded.
	ErrCorruptSession = errors.New("corrupted session data")
)

// Store is a small durable key/value store for the session.
type Store interface {
	// Get returns the value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes the keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
