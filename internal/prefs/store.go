// Package prefs persists client-side preferences: the cached identity, custom
// categories, the last currency rate and the session cookie.
package prefs

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("preference store closed")

// Store is a flat string key-value store. Get reports false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
