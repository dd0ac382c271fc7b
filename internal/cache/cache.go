// Package cache holds field values fetched from the remote service together with the
// instant each one stops being valid. Staleness is only ever discovered on access.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/thatsimonsguy/qivivo-client/internal/datadog"
)

// Key addresses one field of one device.
type Key struct {
	Device string
	Field  string
}

func (k Key) String() string {
	return k.Device + "\x00" + k.Field
}

type Entry struct {
	Value      any
	ValidUntil time.Time
}

// FetchFunc performs the remote call behind a field and reports until when its result holds.
type FetchFunc func(ctx context.Context) (value any, validUntil time.Time, err error)

// Cache is safe for concurrent use. At most one fetch per key is in flight; callers that
// arrive while it runs wait for it and share its result.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]Entry
	// gens is bumped by Invalidate so that a fetch started before an invalidation
	// does not store its (possibly pre-write) result.
	gens   map[Key]uint64
	flight singleflight.Group
	now    func() time.Time
}

type Option func(*Cache)

// WithClock replaces time.Now as the source of the current instant.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[Key]Entry),
		gens:    make(map[Key]uint64),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the cache's notion of the current instant.
func (c *Cache) Now() time.Time {
	return c.now()
}

func (c *Cache) fresh(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.ValidUntil) {
		return Entry{}, false
	}
	return e, true
}

// Read returns the stored value for key while it is fresh, and otherwise calls fetch,
// stores what it returns and returns that. A failed fetch leaves the entry untouched and
// its error is returned as is.
//
// The fetch runs detached from ctx cancellation so that one caller giving up does not
// fail the others waiting on it; each caller stops waiting when its own ctx is done.
func (c *Cache) Read(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	if e, ok := c.fresh(key); ok {
		datadog.Incr("cache.hit", "field:"+key.Field)
		return e.Value, nil
	}
	datadog.Incr("cache.miss", "field:"+key.Field)

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key.String(), func() (any, error) {
		// a fetch for this key may have completed between our miss and joining the flight
		if e, ok := c.fresh(key); ok {
			return e.Value, nil
		}

		c.mu.Lock()
		gen := c.gens[key]
		c.mu.Unlock()

		start := time.Now()
		value, validUntil, err := fetch(fetchCtx)
		datadog.Timing("remote.fetch", time.Since(start), "field:"+key.Field)
		if err != nil {
			datadog.Incr("cache.fetch_error", "field:"+key.Field)
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gens[key] != gen {
			log.Debug().
				Str("serial", key.Device).
				Str("field", key.Field).
				Msg("Field invalidated during fetch, result not stored")
			return value, nil
		}
		c.entries[key] = Entry{Value: value, ValidUntil: validUntil}

		log.Debug().
			Str("serial", key.Device).
			Str("field", key.Field).
			Time("valid_until", validUntil).
			Msg("Field refreshed")
		return value, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get is Read with the value typed as T.
func Get[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, time.Time, error)) (T, error) {
	var zero T
	v, err := c.Read(ctx, key, func(ctx context.Context) (any, time.Time, error) {
		value, validUntil, err := fetch(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		return value, validUntil, nil
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: %s/%s holds %T, not %T", key.Device, key.Field, v, zero)
	}
	return typed, nil
}

// Peek returns the stored entry for key whether or not it is still fresh.
func (c *Cache) Peek(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Invalidate drops the entries for keys so that their next Read fetches. A fetch already
// in flight for one of them is detached: later Reads start their own instead of joining it.
func (c *Cache) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.gens[k]++
		c.flight.Forget(k.String())
	}
}

// Write runs write without consulting the cache and, if it succeeds, invalidates keys.
func (c *Cache) Write(ctx context.Context, write func(ctx context.Context) error, keys ...Key) error {
	if err := write(ctx); err != nil {
		return err
	}
	c.Invalidate(keys...)
	return nil
}
