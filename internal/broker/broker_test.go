package broker

import (
	"testing"

	"github.com/robalobadob/neuroprime/internal/event"
)

func TestPublishReachesOnlyThatSession(t *testing.T) {
	b := New()
	a1 := b.Subscribe("a")
	a2 := b.Subscribe("a")
	other := b.Subscribe("b")

	b.Sink("a").Emit(event.Event{Type: event.TypeScreen, Screen: "PLAYING"})

	for i, ch := range []chan event.Event{a1, a2} {
		select {
		case e := <-ch:
			if e.Screen != "PLAYING" {
				t.Errorf("sub %d got %+v", i, e)
			}
		default:
			t.Errorf("sub %d received nothing", i)
		}
	}
	select {
	case e := <-other:
		t.Fatalf("other session received %+v", e)
	default:
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := New()
	ch := b.Subscribe("a")
	for i := 0; i < Buffer+10; i++ {
		b.Publish("a", event.Event{Type: event.TypeTimer, TimeLeft: event.Int(i)})
	}
	if len(ch) != Buffer {
		t.Fatalf("buffered %d events, want %d", len(ch), Buffer)
	}
}

func TestLaggingSubscriberGetsResync(t *testing.T) {
	b := New()
	ch := b.Subscribe("a")
	for i := 0; i < Buffer+3; i++ {
		b.Publish("a", event.Event{Type: event.TypeTimer, TimeLeft: event.Int(i)})
	}
	for i := 0; i < Buffer; i++ {
		if e := <-ch; e.Type != event.TypeTimer {
			t.Fatalf("event %d = %+v, want a timer", i, e)
		}
	}

	b.Publish("a", event.Event{Type: event.TypeTip, Tip: "next"})
	if e := <-ch; e.Type != event.TypeResync {
		t.Fatalf("first event after lag = %+v, want resync", e)
	}
	if e := <-ch; e.Type != event.TypeTip {
		t.Fatalf("second event after lag = %+v, want the tip", e)
	}

	// Caught up: no further resync.
	b.Publish("a", event.Event{Type: event.TypeTip})
	if e := <-ch; e.Type != event.TypeTip {
		t.Fatalf("event = %+v, want the tip", e)
	}
	if len(ch) != 0 {
		t.Fatalf("%d unexpected events buffered", len(ch))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch := b.Subscribe("a")
	b.Unsubscribe("a", ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after Unsubscribe")
	}
	if n := b.Subscribers("a"); n != 0 {
		t.Fatalf("subscribers = %d, want 0", n)
	}
	// A second Unsubscribe must not panic on the closed channel.
	b.Unsubscribe("a", ch)
	b.Publish("a", event.Event{Type: event.TypeTip})
}

func TestCloseDropsAllSubscribers(t *testing.T) {
	b := New()
	c1 := b.Subscribe("a")
	c2 := b.Subscribe("a")
	b.Close("a")
	for _, ch := range []chan event.Event{c1, c2} {
		if _, ok := <-ch; ok {
			t.Fatal("channel still open after Close")
		}
	}
	b.Unsubscribe("a", c1)
}
