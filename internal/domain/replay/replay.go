// Package replay defines the idempotency guard for handshake responses.
//
// A help response can be delivered more than once (client retry, duplicate
// event). The guard records response keys so only the first delivery spawns
// an assignment task; duplicates are acknowledged but inert.
package replay

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guard records seen keys to ensure at-most-once processing.
type Guard interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key from the seen set, allowing a retry. Use it
	// only when a recorded key failed to be processed (e.g. queue
	// backpressure).
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryGuard implements Guard with a bounded map plus FIFO eviction
// ring. Bound of zero or less means unbounded.
type inMemoryGuard struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string
	head    int
	maxSize int
	size    atomic.Int64
}

// NewGuard creates an in-memory guard with configuration options.
func NewGuard(opts ...Option) Guard {
	g := &inMemoryGuard{
		maxSize: 100_000,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.seen = make(map[string]struct{})
	if g.maxSize > 0 {
		g.ring = make([]string, g.maxSize)
	}
	return g
}

func (g *inMemoryGuard) SeenAndRecord(_ context.Context, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[key]; ok {
		return true
	}

	if g.maxSize > 0 {
		// Evict the oldest occupant of this ring slot, if any.
		if old := g.ring[g.head]; old != "" {
			if _, still := g.seen[old]; still {
				delete(g.seen, old)
				g.size.Add(-1)
			}
		}
		g.ring[g.head] = key
		g.head = (g.head + 1) % g.maxSize
	}
	g.seen[key] = struct{}{}
	g.size.Add(1)
	return false
}

func (g *inMemoryGuard) Unrecord(_ context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[key]; !ok {
		return
	}
	delete(g.seen, key)
	g.size.Add(-1)
	// The ring slot keeps the stale key; eviction tolerates that because it
	// re-checks membership before deleting.
}

func (g *inMemoryGuard) Size() int64 {
	return g.size.Load()
}
