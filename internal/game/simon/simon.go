// internal/game/simon/simon.go
//
// Sequence game engine (Simon-style) for a single play-through.
// Responsibilities:
//   - Grow the sequence by one random pad per round (prefix-stable).
//   - Play the sequence back with fixed timing; ignore input meanwhile.
//   - Check player presses against the sequence, index by index.
//   - Report the final score (completed rounds) exactly once on the first miss.
//
// Notes:
//   - All methods must be called on the owning session loop; deferred steps
//     are scheduled with loop.Deferrer and guarded by a generation counter.
//   - There is no round limit; the game only ends on a miss or Stop.

package simon

import (
	"errors"
	"time"

	"github.com/robalobadob/neuroprime/internal/audio"
	"github.com/robalobadob/neuroprime/internal/event"
	"github.com/robalobadob/neuroprime/internal/game"
	"github.com/robalobadob/neuroprime/internal/loop"
)

var (
	ErrGameOver       = errors.New("simon: game over")
	ErrInputIgnored   = errors.New("simon: input ignored")
	ErrUnknownColor   = errors.New("simon: unknown color")
	ErrAlreadyStarted = errors.New("simon: already started")
)

// Phase is the round state.
type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseDisplaying Phase = "DISPLAYING_SEQUENCE"
	PhaseAwaiting   Phase = "AWAITING_INPUT"
	PhaseRoundWin   Phase = "ROUND_WIN"
	PhaseRoundFail  Phase = "ROUND_FAIL"
)

// Source picks a pad index in [0, n). *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// Timing controls playback pacing.
type Timing struct {
	Lead       time.Duration // pause before the first pad of a playback
	Flash      time.Duration // how long a pad stays lit
	Gap        time.Duration // dark pause between two pads
	RoundDelay time.Duration // pause after a completed round
}

// DefaultTiming is the pacing used when none is configured.
func DefaultTiming() Timing {
	return Timing{
		Lead:       800 * time.Millisecond,
		Flash:      450 * time.Millisecond,
		Gap:        200 * time.Millisecond,
		RoundDelay: 900 * time.Millisecond,
	}
}

// Deps are the collaborators of a game instance. Loop and Rand are required.
type Deps struct {
	Loop   loop.Deferrer
	Rand   Source
	Audio  audio.Player
	Sink   event.Sink
	OnOver game.OverFunc
}

// Feedback describes the effect of one press.
type Feedback struct {
	Correct  bool  `json:"correct"`
	Phase    Phase `json:"phase"`
	Round    int   `json:"round"`
	Progress int   `json:"progress"`
}

// State is a read-only view of the game.
type State struct {
	Phase    Phase `json:"phase"`
	Round    int   `json:"round"`
	Progress int   `json:"progress"`
	Score    int   `json:"score"`
	Over     bool  `json:"over"`
}

// Game is one sequence-game instance.
type Game struct {
	timing Timing
	deps   Deps

	sequence []ColorID
	progress int // correct presses in the current round
	phase    Phase
	gen      uint64 // bumped whenever scheduled steps must be dropped
	started  bool
	stopped  bool
	over     bool
	reported bool
}

// New returns an idle game. Start begins round one.
func New(t Timing, d Deps) *Game {
	if d.Audio == nil {
		d.Audio = audio.Mute{}
	}
	if d.Sink == nil {
		d.Sink = event.Discard
	}
	return &Game{timing: t, deps: d, phase: PhaseIdle}
}

// Start begins the first round.
func (g *Game) Start() error {
	if g.started {
		return ErrAlreadyStarted
	}
	g.started = true
	g.nextRound()
	return nil
}

// Press registers one pad press.
func (g *Game) Press(id ColorID) (Feedback, error) {
	if g.over {
		return g.feedback(false), ErrGameOver
	}
	if g.phase != PhaseAwaiting {
		return g.feedback(false), ErrInputIgnored
	}
	c, ok := Lookup(id)
	if !ok {
		return g.feedback(false), ErrUnknownColor
	}

	g.flash(c)

	if id != g.sequence[g.progress] {
		g.setPhase(PhaseRoundFail)
		g.finish()
		return g.feedback(false), nil
	}

	g.progress++
	if g.progress == len(g.sequence) {
		g.setPhase(PhaseRoundWin)
		g.gen++
		gen := g.gen
		g.deps.Loop.After(g.timing.RoundDelay, func() {
			if g.stale(gen) {
				return
			}
			g.nextRound()
		})
	}
	return g.feedback(true), nil
}

// Stop abandons the game without reporting a score.
func (g *Game) Stop() {
	g.stopped = true
	g.over = true
	g.reported = true
	g.gen++
}

// State returns a snapshot.
func (g *Game) State() State {
	return State{
		Phase:    g.phase,
		Round:    len(g.sequence),
		Progress: g.progress,
		Score:    g.score(),
		Over:     g.over,
	}
}

// Score is the number of fully completed rounds.
func (g *Game) score() int {
	if len(g.sequence) == 0 {
		return 0
	}
	if g.phase == PhaseRoundWin {
		return len(g.sequence)
	}
	return len(g.sequence) - 1
}

func (g *Game) nextRound() {
	pick := palette[g.deps.Rand.IntN(len(palette))]
	g.sequence = append(g.sequence, pick.ID)
	g.progress = 0
	g.gen++
	g.deps.Sink.Emit(event.Event{Type: event.TypeRound, Game: string(game.TypeSimon), Round: len(g.sequence)})
	g.setPhase(PhaseDisplaying)

	gen := g.gen
	g.deps.Loop.After(g.timing.Lead, func() { g.showStep(gen, 0) })
}

// showStep lights pad i of the sequence, then schedules pad i+1.
func (g *Game) showStep(gen uint64, i int) {
	if g.stale(gen) {
		return
	}
	if i >= len(g.sequence) {
		g.setPhase(PhaseAwaiting)
		return
	}
	c, _ := Lookup(g.sequence[i])
	g.light(c, true)
	g.deps.Audio.PlayTone(c.Frequency)
	g.deps.Loop.After(g.timing.Flash, func() {
		if g.stale(gen) {
			return
		}
		g.light(c, false)
		g.deps.Loop.After(g.timing.Gap, func() { g.showStep(gen, i+1) })
	})
}

// flash gives press feedback: light + tone, unlit after Flash.
func (g *Game) flash(c Color) {
	g.light(c, true)
	g.deps.Audio.PlayTone(c.Frequency)
	g.deps.Loop.After(g.timing.Flash, func() {
		if g.stopped {
			return
		}
		g.light(c, false)
	})
}

func (g *Game) finish() {
	g.over = true
	g.gen++
	if g.reported {
		return
	}
	g.reported = true
	if g.deps.OnOver != nil {
		g.deps.OnOver(len(g.sequence) - 1)
	}
}

func (g *Game) stale(gen uint64) bool { return g.over || gen != g.gen }

func (g *Game) setPhase(p Phase) {
	g.phase = p
	g.deps.Sink.Emit(event.Event{Type: event.TypePhase, Game: string(game.TypeSimon), Phase: string(p), Round: len(g.sequence)})
}

func (g *Game) light(c Color, on bool) {
	g.deps.Sink.Emit(event.Event{Type: event.TypeHighlight, Color: string(c.ID), Lit: on})
}

func (g *Game) feedback(correct bool) Feedback {
	return Feedback{Correct: correct, Phase: g.phase, Round: len(g.sequence), Progress: g.progress}
}
