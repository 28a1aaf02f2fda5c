// Package auth decides which operations a caller may run.
//
// The Cache keeps each subject's allowed operations for a bounded time and
// refreshes them from a permission authority on demand. The Guard applies
// the cached permissions to a request.
package auth

import (
	"context"
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/koba/cqlbridge/internal/logging"
	"github.com/koba/cqlbridge/internal/metrics"
)

const (
	// DefaultTTL is how long a fetched permission set stays fresh.
	DefaultTTL = 15 * time.Minute
	// DefaultSize bounds the number of cached subjects.
	DefaultSize = 4096
	// Wildcard grants every operation.
	Wildcard = "all"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Fetcher loads a subject's allowed operations from the permission
// authority.
type Fetcher interface {
	AllowedOperations(ctx context.Context, subject, credential string) ([]string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, subject, credential string) ([]string, error)

func (f FetcherFunc) AllowedOperations(ctx context.Context, subject, credential string) ([]string, error) {
	return f(ctx, subject, credential)
}

// Entry is the cached permission set of one subject.
type Entry struct {
	Subject     string
	Operations  map[string]bool
	RefreshedAt time.Time
}

// List returns the operations in sorted order.
func (e Entry) List() []string {
	ops := make([]string, 0, len(e.Operations))
	for op := range e.Operations {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// CacheOptions configures a Cache. Zero values select the defaults.
type CacheOptions struct {
	TTL     time.Duration
	Size    int
	Clock   Clock
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Cache is a TTL cache of permission sets. Concurrent misses for the same
// subject may each fetch; the last write wins.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	clock   Clock
	entries *lru.Cache[string, Entry]
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCache creates a cache backed by fetcher.
func NewCache(fetcher Fetcher, opts CacheOptions) (*Cache, error) {
	if fetcher == nil {
		return nil, errors.New("permission cache requires a fetcher")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Clock == nil {
		opts.Clock = ClockFunc(time.Now)
	}
	entries, err := lru.New[string, Entry](opts.Size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create permission cache")
	}
	return &Cache{
		fetcher: fetcher,
		ttl:     opts.TTL,
		clock:   opts.Clock,
		entries: entries,
		logger:  logging.OrNop(opts.Logger),
		metrics: opts.Metrics,
	}, nil
}

// AllowedOperations returns the subject's permission set, fetching it when
// the cached entry is missing or stale. A failed fetch yields an empty set
// and is not cached. The returned map is the caller's to modify.
func (c *Cache) AllowedOperations(ctx context.Context, subject, credential string) map[string]bool {
	return maps.Clone(c.operations(ctx, subject, credential))
}

// operations returns the cached set itself. Callers must not modify it.
func (c *Cache) operations(ctx context.Context, subject, credential string) map[string]bool {
	now := c.clock.Now()
	if e, ok := c.entries.Get(subject); ok && now.Sub(e.RefreshedAt) < c.ttl {
		c.metrics.ObserveCacheLookup("hit")
		return e.Operations
	}

	ops, err := c.fetcher.AllowedOperations(ctx, subject, credential)
	if err != nil {
		c.metrics.ObserveCacheLookup("error")
		c.logger.Warn("failed to fetch permissions; denying all operations",
			zap.String("subject", subject),
			zap.Error(err))
		return map[string]bool{}
	}
	c.metrics.ObserveCacheLookup("miss")

	set := make(map[string]bool, len(ops))
	for _, op := range ops {
		if op = normalizeOperation(op); op != "" {
			set[op] = true
		}
	}
	c.entries.Add(subject, Entry{Subject: subject, Operations: set, RefreshedAt: c.clock.Now()})
	return set
}

// HasPermission reports whether subject may run operation.
func (c *Cache) HasPermission(ctx context.Context, subject, operation, credential string) bool {
	ops := c.operations(ctx, subject, credential)
	return ops[Wildcard] || ops[normalizeOperation(operation)]
}

// Lookup returns the cached entry without refreshing it.
func (c *Cache) Lookup(subject string) (Entry, bool) {
	e, ok := c.entries.Peek(subject)
	if ok {
		e.Operations = maps.Clone(e.Operations)
	}
	return e, ok
}

// Invalidate evicts one subject.
func (c *Cache) Invalidate(subject string) {
	c.entries.Remove(subject)
}

// Clear evicts every subject.
func (c *Cache) Clear() {
	c.entries.Purge()
}

// Len returns the number of cached subjects.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func normalizeOperation(op string) string {
	return strings.ToLower(strings.TrimSpace(op))
}
