// Package cache is the session-cache abstraction behind the search
// pipeline. The cache is an optimization, never a source of truth: every
// implementation is allowed to lose entries at any time, and callers must
// fall through to the store on a miss.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss reports that a key is not present (never stored, expired or
// evicted).
var ErrCacheMiss = errors.New("cache: key not found")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeleteByPrefix removes every key starting with prefix and returns how
	// many were removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
	Close() error
}

// Noop is a disabled cache: every Get misses, every Set is dropped. The
// pipeline runs correctly (if slower) on top of it.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) DeleteByPrefix(context.Context, string) (int64, error) { return 0, nil }

func (Noop) Close() error { return nil }
