package awsranges

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Origin reports whether GetOrPopulate served an already-cached dataset
// or had to populate the slot first.
type Origin int

const (
	OriginHit Origin = iota
	OriginMiss
)

// Cache holds at most one parsed dataset for the lifetime of the
// process. Construct one per application and pass it to the handlers;
// there is no package-level instance.
type Cache struct {
	mu      sync.RWMutex
	dataset *Dataset
	group   singleflight.Group
}

func NewCache() *Cache {
	return &Cache{}
}

// GetOrPopulate returns the cached dataset, invoking loader when the
// slot is empty. Concurrent misses share one in-flight loader call
// instead of each fetching the feed. The loader runs outside the
// mutex; only storing the finished dataset takes the write lock, so a
// reader can never observe a partially built dataset. When the loader
// fails the slot stays empty and a later call retries.
func (c *Cache) GetOrPopulate(ctx context.Context, loader func(context.Context) (*Dataset, error)) (*Dataset, Origin, error) {
	if dataset := c.current(); dataset != nil {
		return dataset, OriginHit, nil
	}

	result, err, _ := c.group.Do("populate", func() (interface{}, error) {
		// A previous flight may have filled the slot while this caller
		// was waiting to join.
		if dataset := c.current(); dataset != nil {
			return dataset, nil
		}
		// The flight serves every waiter, so it must not die with the
		// triggering caller's request: run the loader detached from
		// that caller's cancellation. The fetch layer's own timeout
		// still bounds it.
		dataset, err := loader(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.dataset = dataset
		c.mu.Unlock()
		return dataset, nil
	})
	if err != nil {
		return nil, OriginMiss, err
	}
	return result.(*Dataset), OriginMiss, nil
}

func (c *Cache) current() *Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dataset
}

// Invalidate empties the slot. The next lookup repopulates it from the
// feed; nothing is refreshed eagerly.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.dataset = nil
	c.mu.Unlock()
}
