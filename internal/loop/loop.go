// Package loop serialises the events of one session.
//
// A session is driven from several goroutines: HTTP handlers, websocket
// readers, timers and the coaching-tip request. Loop gives them a single
// logical thread: every state change runs inside Do, and deferred effects
// scheduled with After re-enter Do when they fire. Deferred effects are not
// cancelled; callers guard them with a generation value captured at
// scheduling time.
package loop

import (
	"sync"
	"time"
)

// Timer is a scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d on some goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Deferrer schedules fn to run on the loop after d.
type Deferrer interface {
	After(d time.Duration, fn func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// WallClock is the production scheduler backed by time.AfterFunc.
var WallClock Scheduler = wallClock{}

// Loop is a mutex-serialised executor.
type Loop struct {
	mu    sync.Mutex
	sched Scheduler
}

// New returns a loop using sched, or the wall clock when sched is nil.
func New(sched Scheduler) *Loop {
	if sched == nil {
		sched = WallClock
	}
	return &Loop{sched: sched}
}

// Do runs fn with exclusive access to the loop's state.
// fn must not call Do itself.
func (l *Loop) Do(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}

// After schedules fn to run inside Do once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) Timer {
	return l.sched.AfterFunc(d, func() { l.Do(fn) })
}
