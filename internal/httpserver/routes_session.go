// internal/httpserver/routes_session.go
//
// REST routes for one play session:
//   - POST   /sessions              → mint a session + token (also set as cookie)
//   - GET    /session               → current view
//   - POST   /session/start         → {game, daily} MENU/GAME_OVER → PLAYING
//   - POST   /session/again         → GAME_OVER → PLAYING, same game
//   - POST   /session/quit          → back to MENU
//   - POST   /session/simon/press   → {color}
//   - POST   /session/memory/flip   → {cardId}
//   - DELETE /session               → end the session
//
// Every command answers with the session view so a client without the
// websocket can still poll its state.

package httpserver

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/neuroprime/internal/game"
	"github.com/robalobadob/neuroprime/internal/game/memory"
	"github.com/robalobadob/neuroprime/internal/game/simon"
	"github.com/robalobadob/neuroprime/internal/shell"
)

type newSessionRes struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// handleNewSession creates a shell, stores it and hands out its token.
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	id := s.opts.NewID()
	sh, err := shell.New(id, s.opts.Shell, shell.Deps{
		Scheduler: s.opts.Scheduler,
		Coach:     s.opts.Coach,
		Faces:     s.opts.Faces,
		Sink:      s.opts.Broker.Sink(id),
		Metrics:   s.opts.Metrics,
		Logger:    s.opts.Logger,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.opts.Store.Save(r.Context(), sh); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("save session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.opts.Metrics.SetSessions(s.opts.Store.Len())

	tok, exp, err := s.signToken(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setSessionCookie(w, tok, exp)
	hlog.FromRequest(r).Info().Str("session", id).Msg("session created")
	writeJSON(w, http.StatusCreated, newSessionRes{SessionID: id, Token: tok, ExpiresAt: exp.Unix()})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).View())
}

// handleEndSession removes the session and clears the cookie.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sh := sessionFrom(r)
	if err := s.opts.Store.Delete(r.Context(), sh.ID()); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type startReq struct {
	Game  string `json:"game"`
	Daily bool   `json:"daily"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	t, err := game.ParseType(req.Game)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	sh := sessionFrom(r)
	if err := sh.Start(t, shell.StartOptions{Daily: req.Daily}); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sh.View())
}

func (s *Server) handleAgain(w http.ResponseWriter, r *http.Request) {
	sh := sessionFrom(r)
	if err := sh.PlayAgain(); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sh.View())
}

func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	sh := sessionFrom(r)
	sh.Quit()
	writeJSON(w, http.StatusOK, sh.View())
}

type pressReq struct {
	Color string `json:"color"`
}

type pressRes struct {
	Feedback simon.Feedback `json:"feedback"`
	View     shell.View     `json:"view"`
}

func (s *Server) handlePress(w http.ResponseWriter, r *http.Request) {
	var req pressReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	sh := sessionFrom(r)
	fb, err := sh.Press(colorID(req.Color))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pressRes{Feedback: fb, View: sh.View()})
}

type flipReq struct {
	CardID *int `json:"cardId"`
}

type flipRes struct {
	Result memory.FlipResult `json:"result"`
	View   shell.View        `json:"view"`
}

func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	var req flipReq
	if err := readJSON(r, &req); err != nil || req.CardID == nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	sh := sessionFrom(r)
	res, err := sh.Flip(*req.CardID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, flipRes{Result: res, View: sh.View()})
}

// colorID accepts pad names case-insensitively.
func colorID(s string) simon.ColorID {
	return simon.ColorID(strings.ToLower(strings.TrimSpace(s)))
}
