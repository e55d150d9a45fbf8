// internal/event/event.go
//
// Presentation events emitted by the shell, the games and the audio trigger.
// The HTTP layer forwards them to the session's websocket subscribers; the
// browser turns them into highlights, tones and screen changes.

package event

// Type names an event kind on the wire.
type Type string

const (
	TypeScreen    Type = "screen"    // shell screen changed
	TypeRound     Type = "round"     // simon round started
	TypePhase     Type = "phase"     // simon phase changed
	TypeHighlight Type = "highlight" // simon pad lit / unlit
	TypeTone      Type = "tone"      // play a tone
	TypeCard      Type = "card"      // memory card flipped, matched or hidden
	TypeTimer     Type = "timer"     // memory countdown tick
	TypeGameOver  Type = "game_over" // active game reported its score
	TypeTip       Type = "tip"       // coaching tip resolved
	TypeError     Type = "error"     // command rejected (websocket only)
	TypeResync    Type = "resync"    // events were dropped; refetch the view
)

// Event is a single presentation update. Fields not relevant to Type are omitted.
type Event struct {
	Type      Type    `json:"type"`
	Screen    string  `json:"screen,omitempty"`
	Game      string  `json:"game,omitempty"`
	Phase     string  `json:"phase,omitempty"`
	Round     int     `json:"round,omitempty"`
	Color     string  `json:"color,omitempty"`
	Lit       bool    `json:"lit,omitempty"`
	Frequency float64 `json:"frequency,omitempty"`
	CardIDs   []int   `json:"cardIds,omitempty"`
	Face      string  `json:"face,omitempty"`
	State     string  `json:"state,omitempty"`
	TimeLeft  *int    `json:"timeLeft,omitempty"`
	Score     *int    `json:"score,omitempty"`
	Outcome   string  `json:"outcome,omitempty"`
	Tip       string  `json:"tip,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Sink receives events. Implementations must not block.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Int returns a pointer to n, for the optional numeric fields.
func Int(n int) *int { return &n }
