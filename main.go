package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/neuroprime/internal/broker"
	"github.com/robalobadob/neuroprime/internal/coach"
	"github.com/robalobadob/neuroprime/internal/config"
	"github.com/robalobadob/neuroprime/internal/faces"
	"github.com/robalobadob/neuroprime/internal/httpserver"
	"github.com/robalobadob/neuroprime/internal/metrics"
	"github.com/robalobadob/neuroprime/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(cfg.Level())
	zerolog.TimeFieldFormat = time.RFC3339
	if strings.EqualFold(cfg.LogFormat, "console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cat, err := faces.Load(cfg.FacesFile)
	if err != nil {
		return err
	}
	if cfg.MemoryPairs > cat.Len() {
		return fmt.Errorf("MEMORY_PAIRS=%d exceeds the %d faces available", cfg.MemoryPairs, cat.Len())
	}

	var rec *metrics.Recorder
	if cfg.MetricsEnabled {
		rec = metrics.NewRecorder()
	}

	coachCfg := cfg.Coach()
	coachCfg.Metrics = rec
	tips := coach.New(coachCfg)
	if coachCfg.APIKey == "" {
		log.Warn().Msg("COACH_API_KEY not set, serving the fallback tip")
	}

	events := broker.New()
	var sessions *store.Memory
	sessions = store.NewMemoryStore(store.Options{
		IdleTTL: cfg.SessionTTL,
		OnEvict: func(id string) {
			events.Close(id)
			rec.SetSessions(sessions.Len())
		},
	})

	srv := httpserver.New(httpserver.Options{
		Store:          sessions,
		Broker:         events,
		Faces:          cat,
		Coach:          tips,
		Metrics:        rec,
		Shell:          cfg.Shell(),
		SessionSecret:  cfg.SessionSecret,
		SessionTTL:     cfg.SessionTTL,
		CookieName:     cfg.CookieName,
		ClientOrigin:   cfg.ClientOrigin,
		SecureCookies:  cfg.Production,
		RequestTimeout: 10 * time.Second,
		Logger:         &log.Logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("port", cfg.Port).
			Int("faces", cat.Len()).
			Bool("metrics", rec != nil).
			Msg("starting neuroprime server")
		return srv.Run(ctx, ":"+cfg.Port)
	})
	g.Go(func() error {
		return sessions.Run(ctx, cfg.SweepInterval)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		err := srv.Shutdown(context.Background())
		sessions.Close()
		return err
	})
	return g.Wait()
}
