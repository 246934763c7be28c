package cache

import (
	"context"
	"time"
)

// Invalidator removes all cached entries addressed by the given tags.
// Invalidation is immediate: once it returns, no reader observes an entry
// that was associated with any of the tags.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}

// TagCache is a read-through cache whose entries are addressed by tags in
// addition to their primary key. Writers register each entry under one or
// more tags; invalidating a tag drops every entry registered under it.
type TagCache interface {
	Invalidator

	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error
}
