// Package resolver provides the access-control predicate between the
// settlement engine and the resolver registry.
package resolver

import (
	"sync"

	"github.com/unite-defi/fusion-settlement/internal/types"
)

// Access is the predicate the settlement engine consults before a fill or a
// resolver cancellation. It must be denial-safe: an address the registry has
// never seen is not a resolver.
type Access interface {
	IsResolver(addr types.Address) bool
}

// Whitelist is an in-memory registry keyed by resolver address. Entries
// carry a status flag rather than being deleted, so deregistration flips the
// predicate for every operation sequenced after it.
type Whitelist struct {
	mu      sync.RWMutex
	entries map[types.Address]bool
}

func NewWhitelist() *Whitelist {
	return &Whitelist{entries: make(map[types.Address]bool)}
}

// Register authorizes addr. Re-registering a deregistered resolver
// reactivates it.
func (w *Whitelist) Register(addr types.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[addr] = true
}

// Deregister revokes addr. The predicate reflects the revocation
// immediately.
func (w *Whitelist) Deregister(addr types.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entries[addr]; ok {
		w.entries[addr] = false
	}
}

func (w *Whitelist) IsResolver(addr types.Address) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.entries[addr]
}

// Active returns the currently authorized resolvers.
func (w *Whitelist) Active() []types.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]types.Address, 0, len(w.entries))
	for addr, ok := range w.entries {
		if ok {
			out = append(out, addr)
		}
	}
	return out
}
