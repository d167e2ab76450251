package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically cleans registered caches until its context ends.
type Janitor struct {
	interval time.Duration
	caches   map[string]Cleaner
}

func NewJanitor(interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{interval: interval, caches: make(map[string]Cleaner)}
}

// Register adds a cache under a name used in logs. Call before Run.
func (j *Janitor) Register(name string, c Cleaner) {
	j.caches[name] = c
}

// Sweep cleans every registered cache once.
func (j *Janitor) Sweep(ctx context.Context) int {
	total := 0
	for name, c := range j.caches {
		n := c.CleanExpired()
		if n > 0 {
			slog.DebugContext(ctx, "Cache cleanup completed", "cache", name, "entries_removed", n)
		}
		total += n
	}
	return total
}

// Run blocks, sweeping at every interval, and returns when ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}
