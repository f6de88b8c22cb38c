// Package session maps session ids to their carts. The registry is
// the only shared mutable state in the engine and its per-entry locks
// are the sole synchronization point for cart access.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/EndoRodrigo/eCommerce/internal/cart"
)

const (
	// DefaultTTL is how long an inactive cart survives before purge.
	DefaultTTL = 24 * time.Hour

	// DefaultSweepInterval is how often the background sweep runs.
	DefaultSweepInterval = time.Hour
)

// Archiver receives purged carts. Archiving is best-effort: failures
// are logged and never block the sweep.
type Archiver interface {
	Archive(ctx context.Context, sessionID string, lines []cart.Line, createdAt, updatedAt time.Time) error
}

type entry struct {
	mu        sync.Mutex
	cart      *cart.Cart
	createdAt time.Time
	updatedAt time.Time
}

// Registry is a concurrent store of session carts. The registry-wide
// lock guards only the map; each entry carries its own mutex, so
// operations on one session serialize while distinct sessions never
// block one another.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	ttl        time.Duration
	sweepEvery time.Duration
	archiver   Archiver

	stopSweep chan struct{}
	wg        sync.WaitGroup
}

type Option func(*Registry)

func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

func WithSweepInterval(every time.Duration) Option {
	return func(r *Registry) { r.sweepEvery = every }
}

func WithArchiver(a Archiver) Option {
	return func(r *Registry) { r.archiver = a }
}

// NewRegistry creates a registry and starts its background sweep.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:    make(map[string]*entry),
		ttl:        DefaultTTL,
		sweepEvery: DefaultSweepInterval,
		stopSweep:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.sweepLoop()

	return r
}

func (r *Registry) sweepLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-r.stopSweep:
			return
		}
	}
}

// With runs fn against the session's cart under its entry lock,
// creating the cart lazily on first access. The entry's updatedAt
// moves on every call, successful or not.
func (r *Registry) With(sessionID string, fn func(c *cart.Cart) error) error {
	e := r.entryFor(sessionID)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.updatedAt = time.Now()
	return fn(e.cart)
}

// Snapshot copies the session's lines under a brief lock so callers
// can run network-bound work without holding it.
func (r *Registry) Snapshot(sessionID string) []cart.Line {
	e := r.entryFor(sessionID)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.Lines()
}

// Clear empties the session's cart, as after a successful checkout.
func (r *Registry) Clear(sessionID string) {
	e := r.entryFor(sessionID)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cart.Clear()
	e.updatedAt = time.Now()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep purges every entry whose last update predates now minus TTL.
// It iterates a snapshot of the map and takes each entry's own lock
// individually; the registry-wide lock is never held while visiting
// entries.
func (r *Registry) Sweep() int {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.RLock()
	snapshot := make(map[string]*entry, len(r.entries))
	for id, e := range r.entries {
		snapshot[id] = e
	}
	r.mu.RUnlock()

	purged := 0
	for id, e := range snapshot {
		// copy what the archiver needs under the entry lock; the
		// network-bound archive itself runs with no locks held
		e.mu.Lock()
		stale := e.updatedAt.Before(cutoff)
		var lines []cart.Line
		var createdAt, updatedAt time.Time
		if stale && r.archiver != nil && !e.cart.IsEmpty() {
			lines = e.cart.Lines()
			createdAt = e.createdAt
			updatedAt = e.updatedAt
		}
		e.mu.Unlock()

		if !stale {
			continue
		}

		if len(lines) > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := r.archiver.Archive(ctx, id, lines, createdAt, updatedAt); err != nil {
				log.Printf("session: archiving expired cart %s failed: %v", id, err)
			}
			cancel()
		}

		r.mu.Lock()
		// re-check under the map lock: the entry may have been touched
		// or replaced since the snapshot
		if current, ok := r.entries[id]; ok && current == e {
			current.mu.Lock()
			if current.updatedAt.Before(cutoff) {
				delete(r.entries, id)
				purged++
				log.Printf("session: expired cart %s purged", id)
			}
			current.mu.Unlock()
		}
		r.mu.Unlock()
	}
	return purged
}

// Close stops the background sweep and waits for it to finish.
func (r *Registry) Close() {
	close(r.stopSweep)
	r.wg.Wait()
}

func (r *Registry) entryFor(sessionID string) *entry {
	r.mu.RLock()
	e, ok := r.entries[sessionID]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sessionID]; ok {
		return e
	}
	now := time.Now()
	e = &entry{
		cart:      cart.New(sessionID),
		createdAt: now,
		updatedAt: now,
	}
	r.entries[sessionID] = e
	return e
}
