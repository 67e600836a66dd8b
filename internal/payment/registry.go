package payment

import (
	"sync"
	"time"
)

type entry struct {
	bridge   *Bridge
	lastSeen time.Time
}

// Registry keeps one Bridge per visitor session on the server.
type Registry struct {
	newBridge func() *Bridge
	ttl       time.Duration

	mu      sync.Mutex
	bridges map[string]*entry
	now     func() time.Time
}

func NewRegistry(newBridge func() *Bridge, ttl time.Duration) *Registry {
	return &Registry{
		newBridge: newBridge,
		ttl:       ttl,
		bridges:   make(map[string]*entry),
		now:       time.Now,
	}
}

// Get returns the bridge for key, creating it on first use. A checkout that
// was abandoned longer than CheckoutTTL ago is expired first so the visitor
// can start over.
func (r *Registry) Get(key string) *Bridge {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	e, ok := r.bridges[key]
	if !ok {
		e = &entry{bridge: r.newBridge()}
		r.bridges[key] = e
	} else {
		e.bridge.Expire(now)
	}
	e.lastSeen = now
	return e.bridge
}

// Sweep drops bridges idle longer than the ttl. Abandoned checkouts are
// expired first; a payment still in progress is kept.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	cutoff := now.Add(-r.ttl)
	removed := 0
	for k, e := range r.bridges {
		e.bridge.Expire(now)
		if e.lastSeen.Before(cutoff) && e.bridge.Snapshot().Status != Loading {
			delete(r.bridges, k)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bridges)
}
