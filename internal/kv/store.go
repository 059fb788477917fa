// Package kv provides the persisted key-value stores that hold the resort's
// JSON documents (rooms, bookings, memberships and the booking draft).
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("key not found")

// Store is a persisted key-value store of JSON documents.
// Values are whole documents: there is no partial update, the last writer wins.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
