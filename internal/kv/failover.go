package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"grandresort/internal/metrics"

	"github.com/facebookgo/clock"
	"github.com/rs/zerolog"
)

// DefaultRecoveryInterval is how long the failover store waits before retrying a failed primary.
const DefaultRecoveryInterval = time.Minute

// FailoverStore reads and writes through primary and switches to fallback
// while primary is failing. Successful writes are mirrored to fallback so it
// stays warm. Keys written while degraded are copied back to primary before
// primary serves again.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   *zerolog.Logger
	clock    clock.Clock
	recovery time.Duration

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
	// dirty maps keys written to fallback only to a write sequence number.
	dirty map[string]uint64
	seq   uint64
}

// FailoverOption customizes a FailoverStore.
type FailoverOption func(*FailoverStore)

// WithClock sets the clock used for recovery checks.
func WithClock(c clock.Clock) FailoverOption {
	return func(s *FailoverStore) { s.clock = c }
}

// WithRecoveryInterval sets how long to stay on fallback before retrying primary.
func WithRecoveryInterval(d time.Duration) FailoverOption {
	return func(s *FailoverStore) {
		if d > 0 {
			s.recovery = d
		}
	}
}

// NewFailoverStore combines primary and fallback.
func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger, opts ...FailoverOption) *FailoverStore {
	s := &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		clock:    clock.New(),
		recovery: DefaultRecoveryInterval,
		dirty:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Degraded reports whether the store is currently serving from fallback.
func (s *FailoverStore) Degraded() bool {
	return s.isDown.Load()
}

// PendingSync returns the number of keys waiting to be copied back to primary.
func (s *FailoverStore) PendingSync() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty)
}

func (s *FailoverStore) usePrimary() bool {
	if !s.isDown.Load() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	if now.Sub(s.lastCheck) >= s.recovery {
		s.lastCheck = now
		return true
	}
	return false
}

// tryPrimary reports whether the operation may go to primary. A recovering
// primary first receives every key written while it was down.
func (s *FailoverStore) tryPrimary(ctx context.Context) bool {
	if !s.usePrimary() {
		return false
	}
	if err := s.resync(ctx); err != nil {
		s.markDown("resync", err)
		return false
	}
	return true
}

func (s *FailoverStore) resync(ctx context.Context) error {
	s.mu.Lock()
	if len(s.dirty) == 0 {
		s.mu.Unlock()
		return nil
	}
	pending := make(map[string]uint64, len(s.dirty))
	for k, v := range s.dirty {
		pending[k] = v
	}
	s.mu.Unlock()

	for key, seq := range pending {
		value, err := s.fallback.Get(ctx, key)
		switch {
		case errors.Is(err, ErrNotFound):
			err = s.primary.Remove(ctx, key)
		case err != nil:
			return fmt.Errorf("read %s from fallback: %w", key, err)
		default:
			err = s.primary.Set(ctx, key, value)
		}
		if err != nil {
			return err
		}

		s.mu.Lock()
		// A newer degraded write keeps the key pending.
		if s.dirty[key] == seq {
			delete(s.dirty, key)
		}
		s.mu.Unlock()
	}
	s.logger.Info().Int("keys", len(pending)).Msg("primary store resynced from fallback")
	return nil
}

func (s *FailoverStore) markDirty(key string) {
	s.mu.Lock()
	s.seq++
	s.dirty[key] = s.seq
	s.mu.Unlock()
}

func (s *FailoverStore) markDown(op string, err error) {
	s.mu.Lock()
	s.lastCheck = s.clock.Now()
	s.mu.Unlock()

	if s.isDown.CompareAndSwap(false, true) {
		metrics.IncStoreFailover()
		s.logger.Warn().Err(err).Str("op", op).Msg("primary store failed, switching to fallback")
	}
}

func (s *FailoverStore) markUp() {
	if s.isDown.CompareAndSwap(true, false) {
		s.logger.Info().Msg("primary store recovered")
	}
}

func (s *FailoverStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.tryPrimary(ctx) {
		v, err := s.primary.Get(ctx, key)
		if err == nil || errors.Is(err, ErrNotFound) {
			s.markUp()
			return v, err
		}
		s.markDown("get", err)
	}
	return s.fallback.Get(ctx, key)
}

func (s *FailoverStore) Set(ctx context.Context, key string, value []byte) error {
	if s.tryPrimary(ctx) {
		err := s.primary.Set(ctx, key, value)
		if err == nil {
			s.markUp()
			if mirrorErr := s.fallback.Set(ctx, key, value); mirrorErr != nil {
				s.logger.Debug().Err(mirrorErr).Str("key", key).Msg("fallback mirror write failed")
			}
			return nil
		}
		s.markDown("set", err)
	}
	if err := s.fallback.Set(ctx, key, value); err != nil {
		return err
	}
	s.markDirty(key)
	return nil
}

func (s *FailoverStore) Remove(ctx context.Context, key string) error {
	if s.tryPrimary(ctx) {
		err := s.primary.Remove(ctx, key)
		if err == nil {
			s.markUp()
			_ = s.fallback.Remove(ctx, key)
			return nil
		}
		s.markDown("remove", err)
	}
	if err := s.fallback.Remove(ctx, key); err != nil {
		return err
	}
	s.markDirty(key)
	return nil
}

// Ping succeeds while either side is reachable.
func (s *FailoverStore) Ping(ctx context.Context) error {
	if err := s.primary.Ping(ctx); err == nil {
		return nil
	}
	return s.fallback.Ping(ctx)
}

func (s *FailoverStore) Close() error {
	return errors.Join(s.primary.Close(), s.fallback.Close())
}
