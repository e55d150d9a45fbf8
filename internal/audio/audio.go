// Package audio is the tone trigger.
//
// The server does not synthesise sound; it tells the client which tone to
// play. Channel mirrors the browser autoplay rule: nothing is played until
// Init has been called once from a user gesture, and Init is idempotent.
package audio

import (
	"sync/atomic"
	"time"

	"github.com/robalobadob/neuroprime/internal/event"
)

// DefaultDuration is how long a tone sounds on the client.
const DefaultDuration = 300 * time.Millisecond

// Player is the audio boundary used by the games and the shell.
type Player interface {
	Init()
	PlayTone(frequency float64)
}

// Channel emits tone events onto a sink once unlocked.
type Channel struct {
	sink     event.Sink
	unlocked atomic.Bool
}

// NewChannel returns a locked channel writing to sink.
func NewChannel(sink event.Sink) *Channel {
	if sink == nil {
		sink = event.Discard
	}
	return &Channel{sink: sink}
}

// Init unlocks playback. Calling it again has no effect.
func (c *Channel) Init() {
	c.unlocked.Store(true)
}

// Unlocked reports whether Init has been called.
func (c *Channel) Unlocked() bool { return c.unlocked.Load() }

// PlayTone emits a tone event. It is dropped while the channel is locked or
// when frequency is not positive.
func (c *Channel) PlayTone(frequency float64) {
	if !c.unlocked.Load() || frequency <= 0 {
		return
	}
	c.sink.Emit(event.Event{Type: event.TypeTone, Frequency: frequency})
}

// Mute is a Player that never plays anything.
type Mute struct{}

func (Mute) Init()            {}
func (Mute) PlayTone(float64) {}
