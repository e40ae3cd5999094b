package session

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Expirable is implemented by listeners whose owner can go away without unregistering
type Expirable interface {
	Expired() bool
}

// Lifetime is an embeddable liveness flag for listeners
type Lifetime struct {
	expired atomic.Bool
}

// Expire marks the owner as gone
func (l *Lifetime) Expire() {
	l.expired.Store(true)
}

// Expired implements Expirable
func (l *Lifetime) Expired() bool {
	return l.expired.Load()
}

// Registry is a lock-guarded, identity-deduplicated listener collection
type Registry[L comparable] struct {
	mu      sync.Mutex
	entries []L
}

// Register adds l. Nil listeners and listeners whose dynamic type has no
// identity (not comparable) are rejected; duplicates are accepted without re-adding.
func (r *Registry[L]) Register(l L) bool {
	if isNil(l) || !identifiable(l) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	for _, e := range r.entries {
		if e == l {
			return true
		}
	}
	r.entries = append(r.entries, l)
	return true
}

// Unregister removes every entry identical to l. Absence is not an error.
func (r *Registry[L]) Unregister(l L) bool {
	if isNil(l) {
		return false
	}
	if !identifiable(l) {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	for _, e := range r.entries {
		if e != l {
			kept = append(kept, e)
		}
	}
	clear(r.entries[len(kept):])
	r.entries = kept
	return true
}

// Snapshot returns a copy of the current entries in registration order
func (r *Registry[L]) Snapshot() []L {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := make([]L, len(r.entries))
	copy(snap, r.entries)
	return snap
}

// Len returns the number of registered entries, expired ones included
func (r *Registry[L]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Notify calls fn for every live listener in a snapshot taken now and returns
// how many were called. fn runs without the registry lock held.
func (r *Registry[L]) Notify(fn func(L)) int {
	called := 0
	for _, l := range r.Snapshot() {
		if expired(l) {
			continue
		}
		fn(l)
		called++
	}
	return called
}

func (r *Registry[L]) pruneLocked() {
	kept := r.entries[:0]
	for _, e := range r.entries {
		if !expired(e) {
			kept = append(kept, e)
		}
	}
	clear(r.entries[len(kept):])
	r.entries = kept
}

func expired(l any) bool {
	e, ok := l.(Expirable)
	return ok && e.Expired()
}

// identifiable reports whether == on l cannot panic
func identifiable(l any) bool {
	return reflect.TypeOf(l).Comparable()
}

func isNil(l any) bool {
	if l == nil {
		return true
	}
	v := reflect.ValueOf(l)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
