// Package session persists the signed-in user's credentials as plain
// key-value pairs.
package session

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session key not found")

// Store is the key-value persistence behind the auth context.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
