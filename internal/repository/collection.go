// Package repository maps the resort's collections onto a kv.Store.
//
// Every collection is a single JSON array under one key. Operations read the
// whole array, change a copy and write the whole array back, so concurrent
// writers from separate processes can lose updates: the last writer wins.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"grandresort/internal/kv"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicateID = errors.New("duplicate record id")
)

// loadList decodes the array stored under key. A missing key or a document
// that does not decode is an empty list: the store may have been tampered with
// and the callers must stay usable.
func loadList[T any](ctx context.Context, store kv.Store, key string, logger *zerolog.Logger) ([]T, error) {
	data, err := store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("malformed collection, treating as empty")
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func saveJSON(ctx context.Context, store kv.Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Collection is a JSON array of records identified by idOf.
type Collection[T any, K comparable] struct {
	store  kv.Store
	key    string
	idOf   func(T) K
	logger *zerolog.Logger

	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex
}

// NewCollection binds a collection to key in store.
func NewCollection[T any, K comparable](store kv.Store, key string, idOf func(T) K, logger *zerolog.Logger) *Collection[T, K] {
	return &Collection[T, K]{store: store, key: key, idOf: idOf, logger: logger}
}

// Key returns the store key of the collection.
func (c *Collection[T, K]) Key() string {
	return c.key
}

// List returns all records in insertion order.
func (c *Collection[T, K]) List(ctx context.Context) ([]T, error) {
	return loadList[T](ctx, c.store, c.key, c.logger)
}

// Exists reports whether the collection has ever been written.
func (c *Collection[T, K]) Exists(ctx context.Context) (bool, error) {
	_, err := c.store.Get(ctx, c.key)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Find returns the record with id or ErrNotFound.
func (c *Collection[T, K]) Find(ctx context.Context, id K) (T, error) {
	var zero T
	items, err := c.List(ctx)
	if err != nil {
		return zero, err
	}
	for _, item := range items {
		if c.idOf(item) == id {
			return item, nil
		}
	}
	return zero, ErrNotFound
}

// Replace overwrites the whole collection.
func (c *Collection[T, K]) Replace(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if items == nil {
		items = []T{}
	}
	return saveJSON(ctx, c.store, c.key, items)
}

// Add appends item. A record with the same id is ErrDuplicateID.
func (c *Collection[T, K]) Add(ctx context.Context, item T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.List(ctx)
	if err != nil {
		return err
	}
	id := c.idOf(item)
	for _, existing := range items {
		if c.idOf(existing) == id {
			return fmt.Errorf("%w: %v", ErrDuplicateID, id)
		}
	}
	return saveJSON(ctx, c.store, c.key, append(items, item))
}

// Remove deletes every record with id and reports whether anything was removed.
// Removing an absent id changes nothing.
func (c *Collection[T, K]) Remove(ctx context.Context, id K) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.List(ctx)
	if err != nil {
		return false, err
	}
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if c.idOf(item) != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return false, nil
	}
	return true, saveJSON(ctx, c.store, c.key, kept)
}

// Update applies fn to the record with id and persists the result.
// If fn fails nothing is written.
func (c *Collection[T, K]) Update(ctx context.Context, id K, fn func(*T) error) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	items, err := c.List(ctx)
	if err != nil {
		return zero, err
	}
	for i := range items {
		if c.idOf(items[i]) != id {
			continue
		}
		if err := fn(&items[i]); err != nil {
			return zero, err
		}
		if err := saveJSON(ctx, c.store, c.key, items); err != nil {
			return zero, err
		}
		return items[i], nil
	}
	return zero, ErrNotFound
}
