package httpserver

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/hlog"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/robalobadob/neuroprime/internal/event"
	"github.com/robalobadob/neuroprime/internal/game"
	"github.com/robalobadob/neuroprime/internal/shell"
)

var errSessionClosed = errors.New("session closed")

// wsCommand is a client message on the event stream.
type wsCommand struct {
	Type   string `json:"type"` // start | again | quit | press | flip
	Game   string `json:"game,omitempty"`
	Daily  bool   `json:"daily,omitempty"`
	Color  string `json:"color,omitempty"`
	CardID *int   `json:"cardId,omitempty"`
}

// wsSnapshot is the first message sent on connect, and again whenever the
// subscriber fell behind and lost events.
type wsSnapshot struct {
	Type string     `json:"type"` // always "view"
	View shell.View `json:"view"`
}

// handleWS streams the session's events and accepts commands on the same
// connection. One goroutine drains the broker subscription, the other reads
// commands; either ending tears down both.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)
	sh := sessionFrom(r)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(s.opts.ClientOrigin),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	events := s.opts.Broker.Subscribe(sh.ID())
	defer s.opts.Broker.Unsubscribe(sh.ID(), events)

	g, ctx := errgroup.WithContext(r.Context())

	if err := wsjson.Write(ctx, conn, wsSnapshot{Type: "view", View: sh.View()}); err != nil {
		logger.Debug().Err(err).Msg("websocket snapshot failed")
		return
	}

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case e, ok := <-events:
				if !ok {
					// Close waits for the peer's reply, which the reader pump consumes.
					conn.Close(websocket.StatusGoingAway, "session closed")
					return errSessionClosed
				}
				var msg any = e
				if e.Type == event.TypeResync {
					// Events were dropped; a fresh view replaces them.
					msg = wsSnapshot{Type: "view", View: sh.View()}
				}
				if err := wsjson.Write(ctx, conn, msg); err != nil {
					return err
				}
			}
		}
	})

	g.Go(func() error {
		for {
			var cmd wsCommand
			if err := wsjson.Read(ctx, conn, &cmd); err != nil {
				return err
			}
			if err := applyCommand(sh, cmd); err != nil {
				_, code := errorCode(err)
				if err := wsjson.Write(ctx, conn, event.Event{Type: event.TypeError, Error: code}); err != nil {
					return err
				}
			}
		}
	})

	err = g.Wait()
	logger.Debug().Err(err).Int("close_status", int(websocket.CloseStatus(err))).Msg("websocket closed")
}

var errUnknownCommand = errors.New("unknown command")

// applyCommand runs one websocket command against the session. Results reach
// the client as events.
func applyCommand(sh *shell.Shell, cmd wsCommand) error {
	switch cmd.Type {
	case "start":
		t, err := game.ParseType(cmd.Game)
		if err != nil {
			return err
		}
		return sh.Start(t, shell.StartOptions{Daily: cmd.Daily})
	case "again":
		return sh.PlayAgain()
	case "quit":
		sh.Quit()
		return nil
	case "press":
		_, err := sh.Press(colorID(cmd.Color))
		return err
	case "flip":
		if cmd.CardID == nil {
			return errUnknownCommand
		}
		_, err := sh.Flip(*cmd.CardID)
		return err
	}
	return errUnknownCommand
}

// originPatterns turns the configured client origin into the host pattern
// websocket.Accept expects.
func originPatterns(origin string) []string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
