// internal/game/memory/memory.go
//
// Match game engine (memory / card matching) for a single play-through.
// Responsibilities:
//   - Build a shuffled board where every face appears exactly twice.
//   - Run the countdown; expiry ends the game with the current match count.
//   - Resolve flips two at a time: equal faces stay up as a matched pair,
//     unequal faces are hidden again after the mismatch delay.
//   - Block flips while a mismatch is on display.
//   - Report the score (matched pairs) exactly once, on a clear or on expiry.
//
// Notes:
//   - All methods must be called on the owning session loop. Countdown ticks
//     and mismatch resets are deferred with loop.Deferrer and dropped once the
//     game has ended or been stopped.

package memory

import (
	"errors"
	"fmt"
	"time"

	"github.com/robalobadob/neuroprime/internal/event"
	"github.com/robalobadob/neuroprime/internal/game"
	"github.com/robalobadob/neuroprime/internal/loop"
)

var (
	ErrGameOver        = errors.New("memory: game over")
	ErrBoardLocked     = errors.New("memory: board locked")
	ErrUnknownCard     = errors.New("memory: unknown card")
	ErrCardUnavailable = errors.New("memory: card already face up")
	ErrAlreadyStarted  = errors.New("memory: already started")
)

// Outcome tells how a finished game ended.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeWon     Outcome = "WON"
	OutcomeTimeout Outcome = "TIMEOUT"
)

// Shuffler permutes the board. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Config sizes and paces a board.
type Config struct {
	Pairs         int
	Duration      time.Duration
	Tick          time.Duration
	MismatchDelay time.Duration
}

// DefaultConfig is six pairs against a sixty second clock.
func DefaultConfig() Config {
	return Config{
		Pairs:         6,
		Duration:      60 * time.Second,
		Tick:          time.Second,
		MismatchDelay: 900 * time.Millisecond,
	}
}

// Deps are the collaborators of a game instance. Loop, Shuffle and Faces are required.
type Deps struct {
	Loop    loop.Deferrer
	Shuffle Shuffler
	Faces   []string // exactly cfg.Pairs distinct faces
	Sink    event.Sink
	OnOver  game.OverFunc
}

// Card is one board position.
type Card struct {
	ID      int    `json:"id"`
	Face    string `json:"face"`
	Flipped bool   `json:"isFlipped"`
	Matched bool   `json:"isMatched"`
}

// FlipResult describes the effect of one flip.
type FlipResult struct {
	Card     Card    `json:"card"`
	Matched  bool    `json:"matched"`  // second flip completed a pair
	Mismatch bool    `json:"mismatch"` // second flip missed; board locked
	Matches  int     `json:"matches"`
	Outcome  Outcome `json:"outcome,omitempty"`
}

// State is a read-only view of the board. Faces of face-down cards are blank.
type State struct {
	Cards    []Card  `json:"cards"`
	Pairs    int     `json:"pairs"`
	Matches  int     `json:"matches"`
	TimeLeft int     `json:"timeLeft"` // whole seconds
	Locked   bool    `json:"locked"`
	Over     bool    `json:"over"`
	Outcome  Outcome `json:"outcome,omitempty"`
}

// Game is one match-game instance.
type Game struct {
	cfg  Config
	deps Deps

	cards    []Card
	first    int // index of the face-up unmatched card, or -1
	matches  int
	left     time.Duration
	locked   bool
	gen      uint64
	started  bool
	over     bool
	reported bool
	outcome  Outcome
}

// New validates cfg and returns an idle game.
func New(cfg Config, d Deps) (*Game, error) {
	if cfg.Pairs <= 0 {
		return nil, fmt.Errorf("memory: pairs must be positive, got %d", cfg.Pairs)
	}
	if len(d.Faces) != cfg.Pairs {
		return nil, fmt.Errorf("memory: need %d faces, got %d", cfg.Pairs, len(d.Faces))
	}
	seen := make(map[string]struct{}, len(d.Faces))
	for _, f := range d.Faces {
		if _, dup := seen[f]; dup {
			return nil, fmt.Errorf("memory: duplicate face %q", f)
		}
		seen[f] = struct{}{}
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if d.Sink == nil {
		d.Sink = event.Discard
	}
	return &Game{cfg: cfg, deps: d, first: -1}, nil
}

// Start deals the board and starts the countdown.
func (g *Game) Start() error {
	if g.started {
		return ErrAlreadyStarted
	}
	g.started = true
	g.cards = deal(g.deps.Faces, g.deps.Shuffle)
	g.left = g.cfg.Duration
	g.emitTimer()

	gen := g.gen
	g.deps.Loop.After(g.cfg.Tick, func() { g.tick(gen) })
	return nil
}

// deal duplicates faces, shuffles them and numbers the positions.
func deal(faces []string, s Shuffler) []Card {
	cards := make([]Card, 0, 2*len(faces))
	for _, f := range faces {
		cards = append(cards, Card{Face: f}, Card{Face: f})
	}
	if s != nil {
		s.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	}
	for i := range cards {
		cards[i].ID = i
	}
	return cards
}

// Flip turns card id face up and resolves a pair when it is the second card.
func (g *Game) Flip(id int) (FlipResult, error) {
	switch {
	case g.over:
		return FlipResult{Matches: g.matches, Outcome: g.outcome}, ErrGameOver
	case !g.started || id < 0 || id >= len(g.cards):
		return FlipResult{Matches: g.matches}, ErrUnknownCard
	case g.locked:
		return FlipResult{Matches: g.matches}, ErrBoardLocked
	}
	c := &g.cards[id]
	if c.Flipped || c.Matched {
		return FlipResult{Card: *c, Matches: g.matches}, ErrCardUnavailable
	}

	c.Flipped = true
	g.emitCard([]int{id}, c.Face, "flipped")

	if g.first < 0 {
		g.first = id
		return FlipResult{Card: *c, Matches: g.matches}, nil
	}

	a := &g.cards[g.first]
	g.first = -1
	if a.Face == c.Face {
		a.Matched, c.Matched = true, true
		g.matches++
		g.emitCard([]int{a.ID, c.ID}, c.Face, "matched")
		res := FlipResult{Card: *c, Matched: true, Matches: g.matches}
		if g.matches == g.cfg.Pairs {
			g.finish(OutcomeWon)
			res.Outcome = g.outcome
		}
		return res, nil
	}

	g.locked = true
	pair := [2]int{a.ID, c.ID}
	gen := g.gen
	g.deps.Loop.After(g.cfg.MismatchDelay, func() { g.hide(gen, pair) })
	return FlipResult{Card: *c, Mismatch: true, Matches: g.matches}, nil
}

// hide turns a mismatched pair face down and unlocks the board.
func (g *Game) hide(gen uint64, pair [2]int) {
	if g.stale(gen) {
		return
	}
	for _, id := range pair {
		g.cards[id].Flipped = false
	}
	g.locked = false
	g.emitCard(pair[:], "", "hidden")
}

func (g *Game) tick(gen uint64) {
	if g.stale(gen) {
		return
	}
	g.left -= g.cfg.Tick
	if g.left < 0 {
		g.left = 0
	}
	g.emitTimer()
	if g.left == 0 {
		g.finish(OutcomeTimeout)
		return
	}
	g.deps.Loop.After(g.cfg.Tick, func() { g.tick(gen) })
}

// Stop abandons the game without reporting a score.
func (g *Game) Stop() {
	g.over = true
	g.reported = true
	g.gen++
}

// State returns a snapshot with face-down faces blanked.
func (g *Game) State() State {
	cards := make([]Card, len(g.cards))
	for i, c := range g.cards {
		if !c.Flipped && !c.Matched {
			c.Face = ""
		}
		cards[i] = c
	}
	return State{
		Cards:    cards,
		Pairs:    g.cfg.Pairs,
		Matches:  g.matches,
		TimeLeft: int((g.left + time.Second - 1) / time.Second),
		Locked:   g.locked,
		Over:     g.over,
		Outcome:  g.outcome,
	}
}

func (g *Game) finish(o Outcome) {
	g.over = true
	g.outcome = o
	g.gen++
	if g.reported {
		return
	}
	g.reported = true
	if g.deps.OnOver != nil {
		g.deps.OnOver(g.matches)
	}
}

func (g *Game) stale(gen uint64) bool { return g.over || gen != g.gen }

func (g *Game) emitCard(ids []int, face, state string) {
	g.deps.Sink.Emit(event.Event{Type: event.TypeCard, CardIDs: ids, Face: face, State: state})
}

func (g *Game) emitTimer() {
	secs := int((g.left + time.Second - 1) / time.Second)
	g.deps.Sink.Emit(event.Event{Type: event.TypeTimer, TimeLeft: event.Int(secs)})
}
