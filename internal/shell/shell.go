// internal/shell/shell.go
//
// App shell: the per-session screen-state machine.
// Responsibilities:
//   - MENU -> PLAYING on Start, GAME_OVER -> PLAYING on PlayAgain,
//     PLAYING/GAME_OVER -> MENU on Quit.
//   - Mount a fresh game instance per play-through and forward input to it.
//   - On the game's completion callback: record the score, show GAME_OVER
//     immediately and fetch one coaching tip in the background.
//   - Drop late tips: a tip is applied only while the shell is still on the
//     epoch that requested it and on the GAME_OVER screen.
//
// Notes:
//   - Every exported method runs on the session loop, so a Shell is safe for
//     concurrent use. Game timers and tip results re-enter the same loop.
//   - The epoch is bumped on every Start and Quit.

package shell

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/neuroprime/internal/audio"
	"github.com/robalobadob/neuroprime/internal/event"
	"github.com/robalobadob/neuroprime/internal/faces"
	"github.com/robalobadob/neuroprime/internal/game"
	"github.com/robalobadob/neuroprime/internal/game/memory"
	"github.com/robalobadob/neuroprime/internal/game/simon"
	"github.com/robalobadob/neuroprime/internal/loop"
	"github.com/robalobadob/neuroprime/internal/metrics"
	"github.com/robalobadob/neuroprime/internal/seed"
)

var (
	ErrUnknownGame       = errors.New("shell: unknown game")
	ErrInvalidTransition = errors.New("shell: invalid screen transition")
	ErrNotPlaying        = errors.New("shell: no game in progress")
	ErrWrongGame         = errors.New("shell: command does not apply to the active game")
)

// Tipper produces a coaching tip. It must not fail; *coach.Client satisfies it.
type Tipper interface {
	Tip(ctx context.Context, t game.Type, score int) string
}

// Config holds the per-game tuning shared by every session.
type Config struct {
	Simon     simon.Timing
	Memory    memory.Config
	DailySalt string
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		Simon:     simon.DefaultTiming(),
		Memory:    memory.DefaultConfig(),
		DailySalt: "local_dev_salt",
	}
}

// Deps are the collaborators of a shell. Coach and Faces are required.
type Deps struct {
	Scheduler loop.Scheduler // nil: wall clock
	Coach     Tipper
	Faces     *faces.Catalog
	Sink      event.Sink
	Audio     audio.Player // nil: a Channel writing to Sink
	Metrics   *metrics.Recorder
	Logger    *zerolog.Logger // nil: global logger
	Now       func() time.Time
	Seed      func() (uint64, error) // nil: seed.New
}

// StartOptions tune a single play-through.
type StartOptions struct {
	// Daily seeds the game from the UTC date so every player gets the same
	// sequence or board that day.
	Daily bool `json:"daily"`
}

// View is a snapshot of everything the client renders.
type View struct {
	Screen     game.Screen   `json:"screen"`
	Game       game.Type     `json:"game"`
	Label      string        `json:"label,omitempty"`
	Daily      bool          `json:"daily"`
	Score      int           `json:"score"`
	Tip        string        `json:"tip,omitempty"`
	TipLoading bool          `json:"tipLoading"`
	Simon      *simon.State  `json:"simon,omitempty"`
	Memory     *memory.State `json:"memory,omitempty"`
}

// Shell is one session's app state.
type Shell struct {
	id     string
	cfg    Config
	deps   Deps
	loop   *loop.Loop
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	tips   sync.WaitGroup

	lastActive atomic.Int64 // unix nanos

	// guarded by loop
	screen     game.Screen
	active     game.Type
	daily      bool
	score      int
	tip        string
	tipLoading bool
	epoch      uint64
	closed     bool
	simon      *simon.Game
	memory     *memory.Game
}

// New returns a shell on the MENU screen.
func New(id string, cfg Config, d Deps) (*Shell, error) {
	if d.Coach == nil {
		return nil, errors.New("shell: coach is required")
	}
	if d.Faces == nil {
		return nil, errors.New("shell: face catalog is required")
	}
	if cfg.Memory.Pairs > d.Faces.Len() {
		return nil, fmt.Errorf("shell: %d pairs need more faces than the %d in the catalog", cfg.Memory.Pairs, d.Faces.Len())
	}
	if d.Sink == nil {
		d.Sink = event.Discard
	}
	if d.Audio == nil {
		d.Audio = audio.NewChannel(d.Sink)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Seed == nil {
		d.Seed = seed.New
	}
	base := log.Logger
	if d.Logger != nil {
		base = *d.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Shell{
		id:     id,
		cfg:    cfg,
		deps:   d,
		loop:   loop.New(d.Scheduler),
		logger: base.With().Str("session", id).Logger(),
		ctx:    ctx,
		cancel: cancel,
		screen: game.ScreenMenu,
		active: game.TypeNone,
	}
	s.touch()
	return s, nil
}

// ID is the session identifier.
func (s *Shell) ID() string { return s.id }

// LastActive reports when the shell last received a command.
func (s *Shell) LastActive() time.Time { return time.Unix(0, s.lastActive.Load()) }

func (s *Shell) touch() { s.lastActive.Store(s.deps.Now().UnixNano()) }

// Start mounts a fresh game of type t. Allowed from MENU and GAME_OVER.
func (s *Shell) Start(t game.Type, opts StartOptions) error {
	s.touch()
	var err error
	s.loop.Do(func() {
		if s.screen == game.ScreenPlaying {
			err = ErrInvalidTransition
			return
		}
		err = s.start(t, opts)
	})
	return err
}

// PlayAgain restarts the last game type with a fresh instance. Allowed from GAME_OVER.
func (s *Shell) PlayAgain() error {
	s.touch()
	var err error
	s.loop.Do(func() {
		if s.screen != game.ScreenGameOver {
			err = ErrInvalidTransition
			return
		}
		err = s.start(s.active, StartOptions{Daily: s.daily})
	})
	return err
}

// Quit returns to the menu, abandoning the game and any pending tip.
// Quitting from the menu is a no-op.
func (s *Shell) Quit() {
	s.touch()
	s.loop.Do(func() {
		if s.screen == game.ScreenMenu {
			return
		}
		s.stopGame()
		s.epoch++
		s.active = game.TypeNone
		s.daily = false
		s.tip = ""
		s.tipLoading = false
		s.screen = game.ScreenMenu
		s.emitScreen()
		s.logger.Info().Msg("quit to menu")
	})
}

// Press forwards a pad press to the sequence game.
func (s *Shell) Press(color simon.ColorID) (simon.Feedback, error) {
	s.touch()
	var (
		fb  simon.Feedback
		err error
	)
	s.loop.Do(func() {
		if err = s.require(game.TypeSimon); err != nil {
			return
		}
		fb, err = s.simon.Press(color)
	})
	return fb, err
}

// Flip forwards a card flip to the match game.
func (s *Shell) Flip(cardID int) (memory.FlipResult, error) {
	s.touch()
	var (
		res memory.FlipResult
		err error
	)
	s.loop.Do(func() {
		if err = s.require(game.TypeMemory); err != nil {
			return
		}
		res, err = s.memory.Flip(cardID)
	})
	return res, err
}

// View returns a snapshot of the shell and its active game.
func (s *Shell) View() View {
	var v View
	s.loop.Do(func() { v = s.view() })
	return v
}

// Wait blocks until every outstanding tip request has been applied or dropped.
func (s *Shell) Wait() { s.tips.Wait() }

// Close stops the active game, cancels in-flight tip requests and returns the
// shell to the menu. The shell ignores further game and tip callbacks and
// rejects input with ErrNotPlaying.
func (s *Shell) Close() {
	s.cancel()
	s.loop.Do(func() {
		s.closed = true
		s.stopGame()
		s.epoch++
		s.active = game.TypeNone
		s.daily = false
		s.tipLoading = false
		s.screen = game.ScreenMenu
	})
}

func (s *Shell) start(t game.Type, opts StartOptions) error {
	if t != game.TypeSimon && t != game.TypeMemory {
		return fmt.Errorf("%w: %q", ErrUnknownGame, t)
	}
	if s.closed {
		return ErrInvalidTransition
	}

	sd, err := s.seedFor(opts)
	if err != nil {
		return err
	}
	rng := seed.Rand(sd)
	epoch := s.epoch + 1
	onOver := s.onOver(epoch, t)

	var (
		sg *simon.Game
		mg *memory.Game
	)
	switch t {
	case game.TypeSimon:
		sg = simon.New(s.cfg.Simon, simon.Deps{
			Loop:   s.loop,
			Rand:   rng,
			Audio:  s.deps.Audio,
			Sink:   s.deps.Sink,
			OnOver: onOver,
		})
	case game.TypeMemory:
		picked, err := s.deps.Faces.Pick(s.cfg.Memory.Pairs, rng)
		if err != nil {
			return fmt.Errorf("shell: pick faces: %w", err)
		}
		mg, err = memory.New(s.cfg.Memory, memory.Deps{
			Loop:    s.loop,
			Shuffle: rng,
			Faces:   picked,
			Sink:    s.deps.Sink,
			OnOver:  onOver,
		})
		if err != nil {
			return fmt.Errorf("shell: new board: %w", err)
		}
	}

	s.deps.Audio.Init()
	s.stopGame()
	s.epoch = epoch
	s.active = t
	s.daily = opts.Daily
	s.score = 0
	s.tip = ""
	s.tipLoading = false
	s.screen = game.ScreenPlaying
	s.simon, s.memory = sg, mg
	s.emitScreen()

	if sg != nil {
		err = sg.Start()
	} else {
		err = mg.Start()
	}
	if err != nil {
		return fmt.Errorf("shell: start %s: %w", t, err)
	}

	s.deps.Metrics.RecordGameStarted(string(t))
	s.logger.Info().Str("game", string(t)).Bool("daily", opts.Daily).Msg("game started")
	return nil
}

func (s *Shell) seedFor(opts StartOptions) (uint64, error) {
	if opts.Daily {
		return seed.Daily(s.deps.Now(), s.cfg.DailySalt), nil
	}
	sd, err := s.deps.Seed()
	if err != nil {
		return 0, fmt.Errorf("shell: seed: %w", err)
	}
	return sd, nil
}

// onOver is the completion callback handed to a game mounted at epoch.
func (s *Shell) onOver(epoch uint64, t game.Type) game.OverFunc {
	return func(score int) {
		if epoch != s.epoch || s.screen != game.ScreenPlaying {
			return
		}
		s.score = score
		s.screen = game.ScreenGameOver
		s.tip = ""
		s.tipLoading = true

		over := event.Event{Type: event.TypeGameOver, Game: string(t), Score: event.Int(score)}
		if t == game.TypeMemory && s.memory != nil {
			over.Outcome = string(s.memory.State().Outcome)
		}
		s.emitScreen()
		s.deps.Sink.Emit(over)

		s.deps.Metrics.RecordGameFinished(string(t), score)
		s.logger.Info().Str("game", string(t)).Int("score", score).Msg("game over")

		s.tips.Add(1)
		go s.fetchTip(epoch, t, score)
	}
}

// fetchTip runs off the loop and re-enters it with the result.
func (s *Shell) fetchTip(epoch uint64, t game.Type, score int) {
	defer s.tips.Done()
	tip := s.deps.Coach.Tip(s.ctx, t, score)
	s.loop.Do(func() {
		if epoch != s.epoch || s.screen != game.ScreenGameOver {
			s.logger.Debug().Str("game", string(t)).Msg("late tip dropped")
			return
		}
		s.tip = tip
		s.tipLoading = false
		s.deps.Sink.Emit(event.Event{Type: event.TypeTip, Game: string(t), Tip: tip})
	})
}

func (s *Shell) require(t game.Type) error {
	if s.closed || s.screen != game.ScreenPlaying {
		return ErrNotPlaying
	}
	if s.active != t {
		return ErrWrongGame
	}
	if (t == game.TypeSimon && s.simon == nil) || (t == game.TypeMemory && s.memory == nil) {
		return ErrNotPlaying
	}
	return nil
}

func (s *Shell) stopGame() {
	if s.simon != nil {
		s.simon.Stop()
		s.simon = nil
	}
	if s.memory != nil {
		s.memory.Stop()
		s.memory = nil
	}
}

func (s *Shell) view() View {
	v := View{
		Screen:     s.screen,
		Game:       s.active,
		Label:      s.active.Label(),
		Daily:      s.daily,
		Score:      s.score,
		Tip:        s.tip,
		TipLoading: s.tipLoading,
	}
	if s.simon != nil {
		st := s.simon.State()
		v.Simon = &st
	}
	if s.memory != nil {
		st := s.memory.State()
		v.Memory = &st
	}
	return v
}

func (s *Shell) emitScreen() {
	s.deps.Sink.Emit(event.Event{Type: event.TypeScreen, Screen: string(s.screen), Game: string(s.active)})
}
