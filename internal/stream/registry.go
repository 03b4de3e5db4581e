package stream

import (
	"sync"
	"sync/atomic"

	"SwanPulse/internal/domain/models"

	"github.com/google/uuid"
)

// DataFunc receives every valid stream event.
type DataFunc func(ev *models.StreamEvent)

// ErrorFunc receives transport error messages.
type ErrorFunc func(msg string)

// Subscription is one registered (data, error) callback pair.
type Subscription struct {
	ID      string
	onData  DataFunc
	onError ErrorFunc
	active  atomic.Bool
}

// Active reports whether the subscription still receives notifications.
func (s *Subscription) Active() bool { return s.active.Load() }

// Registry is the ordered set of live subscriptions.
type Registry struct {
	mu   sync.Mutex
	subs []*Subscription
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Add registers a callback pair at the end of the notification order.
func (r *Registry) Add(onData DataFunc, onError ErrorFunc) *Subscription {
	s := &Subscription{ID: uuid.NewString(), onData: onData, onError: onError}
	s.active.Store(true)
	r.mu.Lock()
	r.subs = append(r.subs, s)
	r.mu.Unlock()
	return s
}

// Remove deactivates and unregisters s. It reports whether s was present
// and how many subscriptions remain.
func (r *Registry) Remove(s *Subscription) (removed bool, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.active.Store(false)
	for i, cur := range r.subs {
		if cur == s {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return true, len(r.subs)
		}
	}
	return false, len(r.subs)
}

// Len returns the number of registered subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Snapshot returns the subscriptions in registration order.
func (r *Registry) Snapshot() []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Subscription, len(r.subs))
	copy(out, r.subs)
	return out
}
