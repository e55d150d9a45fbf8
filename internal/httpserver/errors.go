package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/neuroprime/internal/game"
	"github.com/robalobadob/neuroprime/internal/game/memory"
	"github.com/robalobadob/neuroprime/internal/game/simon"
	"github.com/robalobadob/neuroprime/internal/shell"
	"github.com/robalobadob/neuroprime/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// errorCode maps a domain error to an HTTP status and a stable error code.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrUnknownType), errors.Is(err, shell.ErrUnknownGame):
		return http.StatusBadRequest, "unknown_game"
	case errors.Is(err, simon.ErrUnknownColor):
		return http.StatusBadRequest, "unknown_color"
	case errors.Is(err, memory.ErrUnknownCard):
		return http.StatusBadRequest, "unknown_card"
	case errors.Is(err, errUnknownCommand):
		return http.StatusBadRequest, "unknown_command"

	case errors.Is(err, shell.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, shell.ErrNotPlaying):
		return http.StatusConflict, "not_playing"
	case errors.Is(err, shell.ErrWrongGame):
		return http.StatusConflict, "wrong_game"
	case errors.Is(err, simon.ErrInputIgnored):
		return http.StatusConflict, "input_ignored"
	case errors.Is(err, simon.ErrGameOver), errors.Is(err, memory.ErrGameOver):
		return http.StatusConflict, "game_over"
	case errors.Is(err, memory.ErrBoardLocked):
		return http.StatusConflict, "board_locked"
	case errors.Is(err, memory.ErrCardUnavailable):
		return http.StatusConflict, "card_unavailable"

	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "session_not_found"
	}
	return http.StatusInternalServerError, "internal"
}

// writeDomainError maps err and logs anything unexpected.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorCode(err)
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	}
	writeError(w, status, code)
}
