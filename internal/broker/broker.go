// Package broker is an in-process pub/sub for presentation events, keyed by
// session ID. Websocket connections subscribe; a session's shell publishes
// through the Sink returned by Sink.
//
// Publishing never blocks. A subscriber whose buffer is full loses events and
// is marked lagging; the next event that fits is preceded by a resync event so
// the client knows to fetch a fresh view.
package broker

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/neuroprime/internal/event"
)

// Buffer is the per-subscriber channel capacity. A playback round emits a few
// events per pad, so this covers long sequences without dropping.
const Buffer = 64

type subscriber struct {
	lagging atomic.Bool
}

// Broker fans events out to the subscribers of each session.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan event.Event]*subscriber
}

func New() *Broker {
	return &Broker{
		subs: make(map[string]map[chan event.Event]*subscriber),
	}
}

// Subscribe returns a channel that receives the events of the given session.
// The channel is closed by Unsubscribe or Close.
func (b *Broker) Subscribe(sessionID string) chan event.Event {
	ch := make(chan event.Event, Buffer)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan event.Event]*subscriber)
	}
	b.subs[sessionID][ch] = &subscriber{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel. Unknown channels are ignored.
func (b *Broker) Unsubscribe(sessionID string, ch chan event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sessionID][ch]; !ok {
		return
	}
	delete(b.subs[sessionID], ch)
	close(ch)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
}

// Publish sends an event to all subscribers of the given session.
func (b *Broker) Publish(sessionID string, e event.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, sub := range b.subs[sessionID] {
		if sub.lagging.Load() {
			select {
			case ch <- event.Event{Type: event.TypeResync}:
				sub.lagging.Store(false)
			default:
				continue
			}
		}
		select {
		case ch <- e:
		default:
			if !sub.lagging.Swap(true) {
				log.Debug().
					Str("session", sessionID).
					Str("event", string(e.Type)).
					Msg("subscriber lagging, dropping events")
			}
		}
	}
}

// Close drops every subscriber of a session, closing their channels.
func (b *Broker) Close(sessionID string) {
	b.mu.Lock()
	for ch := range b.subs[sessionID] {
		close(ch)
	}
	delete(b.subs, sessionID)
	b.mu.Unlock()
}

// Subscribers reports how many channels listen to a session.
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}

// Sink returns an event.Sink publishing to sessionID.
func (b *Broker) Sink(sessionID string) event.Sink {
	return event.SinkFunc(func(e event.Event) { b.Publish(sessionID, e) })
}
