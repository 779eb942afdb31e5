// Package sessions keeps live search and detail sessions addressable by id
// and expires the ones nobody has touched for a while.
package sessions

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Closer is implemented by every registered session.
type Closer interface {
	Close()
}

type entry[T Closer] struct {
	session  T
	lastSeen time.Time
}

// Registry maps session ids to sessions.
type Registry[T Closer] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	name    string
	now     func() time.Time
	logger  zerolog.Logger
}

// NewRegistry creates an empty registry. name labels log lines.
func NewRegistry[T Closer](name string, logger zerolog.Logger) *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]*entry[T]),
		name:    name,
		now:     time.Now,
		logger:  logger.With().Str("component", "sessions").Str("registry", name).Logger(),
	}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Add registers a session under id.
func (r *Registry[T]) Add(id string, s T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &entry[T]{session: s, lastSeen: r.now()}
}

// Get returns the session and refreshes its idle timer.
func (r *Registry[T]) Get(id string) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	e.lastSeen = r.now()
	return e.session, nil
}

// Remove closes and forgets the session.
func (r *Registry[T]) Remove(id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	e.session.Close()
	return nil
}

// Len returns the number of live sessions.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Each calls fn for every live session without touching idle timers. fn
// runs outside the registry lock.
func (r *Registry[T]) Each(fn func(T)) {
	r.mu.Lock()
	all := make([]T, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e.session)
	}
	r.mu.Unlock()

	for _, s := range all {
		fn(s)
	}
}

// Reap closes sessions idle for longer than ttl and returns how many were removed.
func (r *Registry[T]) Reap(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	var expired []T
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.session)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		r.logger.Debug().Int("count", len(expired)).Msg("Reaped idle sessions")
	}
	return len(expired)
}

// CloseAll closes every session, used on shutdown.
func (r *Registry[T]) CloseAll() {
	r.mu.Lock()
	all := r.entries
	r.entries = make(map[string]*entry[T])
	r.mu.Unlock()

	for _, e := range all {
		e.session.Close()
	}
}
