// internal/store/memory.go
//
// In-memory session store.
// Holds one *shell.Shell per live session, keyed by session ID.
//
// Characteristics:
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - Idle sessions are evicted by Sweep; evicted shells are closed and the
//     OnEvict hook runs outside the lock.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/neuroprime/internal/shell"
)

// ErrNotFound is returned for unknown or evicted session IDs.
var ErrNotFound = errors.New("session not found")

// Store defines the session registry used by the HTTP layer.
type Store interface {
	// Save adds or replaces a session.
	Save(ctx context.Context, s *shell.Shell) error

	// Get retrieves a session by ID.
	// Returns ErrNotFound if the session does not exist.
	Get(ctx context.Context, id string) (*shell.Shell, error)

	// Delete closes and removes a session. Missing IDs are not an error.
	Delete(ctx context.Context, id string) error

	// Len reports the number of live sessions.
	Len() int
}

// Options configure a Memory store.
type Options struct {
	// IdleTTL is how long a session may go without commands before Sweep evicts it.
	IdleTTL time.Duration
	// OnEvict runs after a session is removed, by Delete, Sweep or Close.
	OnEvict func(id string)
	Now     func() time.Time
}

// Memory is an in-memory map-based Store implementation.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*shell.Shell
	opts     Options
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts Options) *Memory {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Memory{sessions: make(map[string]*shell.Shell), opts: opts}
}

// Save adds or updates the session in the map.
func (m *Memory) Save(ctx context.Context, s *shell.Shell) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
	return nil
}

// Get looks up a session by ID.
func (m *Memory) Get(ctx context.Context, id string) (*shell.Shell, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

// Delete closes and removes a session.
func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		m.evict(s)
	}
	return nil
}

// Len reports the number of live sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle for longer than IdleTTL and returns how many
// were removed. A zero IdleTTL disables eviction.
func (m *Memory) Sweep() int {
	if m.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := m.opts.Now().Add(-m.opts.IdleTTL)

	var stale []*shell.Shell
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		m.evict(s)
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				log.Info().Int("evicted", n).Int("live", m.Len()).Msg("idle sessions swept")
			}
		}
	}
}

// Close evicts every session and waits for their pending tip requests.
func (m *Memory) Close() {
	m.mu.Lock()
	all := make([]*shell.Shell, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		m.evict(s)
	}
	for _, s := range all {
		s.Wait()
	}
}

func (m *Memory) evict(s *shell.Shell) {
	s.Close()
	if m.opts.OnEvict != nil {
		m.opts.OnEvict(s.ID())
	}
}
