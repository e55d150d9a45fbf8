// internal/httpserver/server.go
//
// HTTP server wiring for the NeuroPrime backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     access logging, request metrics).
//   - Public endpoints: "/", "/health", "/metrics", "/debug/faces".
//   - Session endpoints: POST /sessions mints a session and its token; the
//     /session/* routes require that token (bearer header, cookie or ?token=).
//   - Websocket event stream: GET /session/ws.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The handler timeout is applied to REST routes only.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/neuroprime/internal/broker"
	"github.com/robalobadob/neuroprime/internal/faces"
	"github.com/robalobadob/neuroprime/internal/loop"
	"github.com/robalobadob/neuroprime/internal/metrics"
	"github.com/robalobadob/neuroprime/internal/shell"
	"github.com/robalobadob/neuroprime/internal/store"
)

// Options carries the server's collaborators and settings.
type Options struct {
	Store   store.Store
	Broker  *broker.Broker
	Faces   *faces.Catalog
	Coach   shell.Tipper
	Metrics *metrics.Recorder // nil disables /metrics
	Shell   shell.Config

	SessionSecret  string
	SessionTTL     time.Duration
	CookieName     string
	ClientOrigin   string
	SecureCookies  bool
	RequestTimeout time.Duration

	Logger    *zerolog.Logger // nil: global logger
	Scheduler loop.Scheduler  // nil: wall clock
	NewID     func() string   // nil: uuid.NewString
}

// Server bundles the router and the session collaborators.
type Server struct {
	r    *chi.Mux
	opts Options
	srv  *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	if opts.Broker == nil {
		opts.Broker = broker.New()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 2 * time.Hour
	}
	if opts.CookieName == "" {
		opts.CookieName = "neuroprime_session"
	}
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = &log.Logger
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	s := &Server{r: chi.NewRouter(), opts: opts}
	s.srv = &http.Server{
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)             // add X-Request-ID
	s.r.Use(chimw.RealIP)                // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog(*opts.Logger))     // hlog request logger + access line
	s.r.Use(recordMetrics(opts.Metrics)) // per-route counters
	s.r.Use(chimw.Recoverer)             // recover from panics
	s.r.Use(corsFor(opts.ClientOrigin))  // credentials-friendly CORS

	// --- public REST (bounded handler time, JSON by default) ---
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(opts.RequestTimeout))
		r.Use(jsonContentType)

		r.Get("/", s.handleIndex)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})
		r.Get("/debug/faces", func(w http.ResponseWriter, r *http.Request) {
			all := s.opts.Faces.All()
			writeJSON(w, http.StatusOK, map[string]any{"count": len(all), "faces": all})
		})
		r.Post("/sessions", s.handleNewSession)
	})

	// --- session routes (token required) ---
	s.r.Route("/session", func(r chi.Router) {
		r.Use(s.requireSession)

		// The event stream lives as long as the client stays connected.
		r.Get("/ws", s.handleWS)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(opts.RequestTimeout))
			r.Use(jsonContentType)

			r.Get("/", s.handleView)
			r.Delete("/", s.handleEndSession)
			r.Post("/start", s.handleStart)
			r.Post("/again", s.handleAgain)
			r.Post("/quit", s.handleQuit)
			r.Post("/simon/press", s.handlePress)
			r.Post("/memory/flip", s.handleFlip)
		})
	})

	if opts.Metrics != nil {
		s.r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Run listens on addr and serves until Shutdown is called.
func (s *Server) Run(_ context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the listener, giving open requests ten seconds.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"service": "neuroprime-go",
		"endpoints": []string{
			"/health", "/metrics", "/debug/faces",
			"POST /sessions",
			"GET /session", "DELETE /session",
			"POST /session/start", "POST /session/again", "POST /session/quit",
			"POST /session/simon/press", "POST /session/memory/flip",
			"GET /session/ws",
		},
	})
}
