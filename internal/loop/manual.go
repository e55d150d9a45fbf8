package loop

import (
	"sync"
	"time"
)

// Manual is a deterministic Scheduler for tests. Time only moves when
// Advance is called; due callbacks run on the caller's goroutine in
// deadline order (ties in scheduling order).
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	pending []*manualTimer
}

type manualTimer struct {
	m       *Manual
	at      time.Duration
	seq     uint64
	fn      func()
	stopped bool
}

// NewManual returns a scheduler whose clock starts at zero.
func NewManual() *Manual { return &Manual{} }

// AfterFunc implements Scheduler.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, fn: f}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves the clock forward by d, firing every callback that falls due,
// including callbacks scheduled by callbacks within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.popDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.at
		m.mu.Unlock()
		next.fn()
	}
}

// Now reports the elapsed manual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending reports how many callbacks are scheduled and not stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

// popDue removes and returns the earliest live timer due at or before target.
func (m *Manual) popDue(target time.Duration) *manualTimer {
	best := -1
	for i, t := range m.pending {
		if t.stopped || t.at > target {
			continue
		}
		if best < 0 || t.at < m.pending[best].at ||
			(t.at == m.pending[best].at && t.seq < m.pending[best].seq) {
			best = i
		}
	}
	if best < 0 {
		m.compact()
		return nil
	}
	t := m.pending[best]
	m.pending = append(m.pending[:best], m.pending[best+1:]...)
	return t
}

func (m *Manual) compact() {
	live := m.pending[:0]
	for _, t := range m.pending {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.pending = live
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, p := range t.m.pending {
		if p == t && !t.stopped {
			t.stopped = true
			return true
		}
	}
	return false
}
