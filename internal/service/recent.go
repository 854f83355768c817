package service

import (
	"sync"
	"time"
)

// RecentOperationTracker remembers operation keys for a short window so
// that a retried submission is rejected before it ever reaches the
// store. The in-memory implementation below only protects a single
// instance; deployments running several replicas should back this with
// a shared cache.
type RecentOperationTracker interface {
	Seen(key string) bool
	Remember(key string)
	Stop()
}

type memoryTracker struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	done    chan struct{}
}

func NewMemoryTracker(ttl time.Duration) RecentOperationTracker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	t := &memoryTracker{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go t.janitor()
	return t
}

func (t *memoryTracker) Seen(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.entries[key]
	if !ok {
		return false
	}
	if time.Since(at) > t.ttl {
		delete(t.entries, key)
		return false
	}
	return true
}

func (t *memoryTracker) Remember(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = time.Now()
}

func (t *memoryTracker) Stop() {
	close(t.done)
}

func (t *memoryTracker) janitor() {
	ticker := time.NewTicker(t.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.mu.Lock()
			for key, at := range t.entries {
				if time.Since(at) > t.ttl {
					delete(t.entries, key)
				}
			}
			t.mu.Unlock()
		}
	}
}
