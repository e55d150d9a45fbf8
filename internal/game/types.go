// internal/game/types.go
//
// Core type definitions shared by the games and the app shell.
// Defines:
//   - Type:   which minigame is active (NONE / SIMON / MEMORY).
//   - Screen: the top-level screen the shell is showing (MENU / PLAYING / GAME_OVER).
//   - Result: the ephemeral value a finished game hands to the shell.
//   - OverFunc: the single contract between a game and its host.

package game

import (
	"errors"
	"strings"
)

// Type identifies a minigame.
type Type string

const (
	TypeNone   Type = "NONE"
	TypeSimon  Type = "SIMON"
	TypeMemory Type = "MEMORY"
)

// ErrUnknownType is returned by ParseType for anything but SIMON or MEMORY.
var ErrUnknownType = errors.New("unknown game type")

// ParseType accepts a game name case-insensitively. NONE is not playable and
// is rejected.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeSimon:
		return TypeSimon, nil
	case TypeMemory:
		return TypeMemory, nil
	}
	return TypeNone, ErrUnknownType
}

// Label is the human-readable name shown on the game screen header.
func (t Type) Label() string {
	switch t {
	case TypeSimon:
		return "Sequence Memory"
	case TypeMemory:
		return "Visual Memory"
	default:
		return ""
	}
}

// Screen is the shell's top-level state.
type Screen string

const (
	ScreenMenu     Screen = "MENU"
	ScreenPlaying  Screen = "PLAYING"
	ScreenGameOver Screen = "GAME_OVER"
)

// Result is what a finished game reports to its host.
type Result struct {
	Score int  `json:"score"`
	Game  Type `json:"gameType"`
}

// OverFunc receives the final, non-negative score exactly once per game instance.
type OverFunc func(score int)
