package audio

import (
	"testing"

	"github.com/robalobadob/neuroprime/internal/event"
)

func TestChannelDropsTonesUntilInit(t *testing.T) {
	var got []event.Event
	c := NewChannel(event.SinkFunc(func(e event.Event) { got = append(got, e) }))

	c.PlayTone(440)
	if len(got) != 0 {
		t.Fatalf("tone emitted before Init: %+v", got)
	}

	c.Init()
	c.Init()
	c.PlayTone(440)
	c.PlayTone(0)

	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].Type != event.TypeTone || got[0].Frequency != 440 {
		t.Errorf("event = %+v", got[0])
	}
	if !c.Unlocked() {
		t.Error("channel still locked after Init")
	}
}

func TestNilSinkIsSafe(t *testing.T) {
	c := NewChannel(nil)
	c.Init()
	c.PlayTone(220)
}
