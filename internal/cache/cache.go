// Package cache holds small in-process caches used by outbound adapters.
package cache

import (
	"context"
	"time"
)

// Cache defines a generic keyed cache.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches whose entries expire.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically evicts expired entries from registered caches.
type Janitor struct {
	caches []Cleaner
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches}
}

// Sweep evicts expired entries once and returns how many were removed.
func (j *Janitor) Sweep() int {
	removed := 0
	for _, c := range j.caches {
		removed += c.CleanExpired()
	}
	return removed
}

// Run sweeps every interval until ctx is done. The returned error is
// always ctx.Err().
func (j *Janitor) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n := j.Sweep()
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}
