package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/scheduler"
	"github.com/vovakirdan/wirechat-relay/internal/store"
	"github.com/vovakirdan/wirechat-relay/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-relay/internal/transport/http"
	"github.com/vovakirdan/wirechat-relay/internal/transport/tcp"
)

// App wires together core and transport layers.
type App struct {
	tcp             *tcp.Server
	http            *stdhttp.Server
	reporter        *scheduler.PresenceReporter
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.AuditStore
	log             *zerolog.Logger
}

// New constructs the application with provided configuration. The HTTP
// server, audit store and presence reporter are only built when configured.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}

	if cfg.AuditDBPath != "" {
		st, err := sqlite.New(cfg.AuditDBPath)
		if err != nil {
			return nil, fmt.Errorf("init audit store: %w", err)
		}
		a.store = st
		logger.Info().Str("db_path", cfg.AuditDBPath).Msg("audit store initialized")
	}

	a.hub = core.NewHub(core.OptionsFromConfig(cfg), a.store, logger)
	a.tcp = tcp.NewServer(cfg.Addr, a.hub, logger)

	if cfg.HTTPAddr != "" {
		a.http = transporthttp.NewServer(a.hub, a.store, cfg, logger)
	}

	if cfg.PresenceSchedule != "" {
		reporter, err := scheduler.NewPresenceReporter(cfg.PresenceSchedule, a.hub.Registry(), logger)
		if err != nil {
			a.cleanup()
			return nil, err
		}
		a.reporter = reporter
	}

	return a, nil
}

// Hub exposes the session hub.
func (a *App) Hub() *core.Hub {
	return a.hub
}

// Run serves until ctx is cancelled or a listener fails, then drains every
// session before releasing resources.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.tcp.ListenAndServe(ctx); err != nil {
			errs <- err
		}
	}()

	if a.http != nil {
		a.http.BaseContext = func(net.Listener) context.Context { return ctx }

		wg.Add(1)
		go func() {
			defer wg.Done()
			a.log.Info().Str("addr", a.http.Addr).Msg("http server started")
			if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				errs <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	if a.reporter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.reporter.Run(ctx)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
		a.log.Error().Err(runErr).Msg("listener failed")
	}
	cancel()

	if a.http != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), a.shutdownTimeout)
		a.log.Info().Msg("shutting down http server")
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("http shutdown incomplete")
		}
		stop()
	}

	wg.Wait()
	a.hub.Wait()
	a.cleanup()

	return runErr
}

// cleanup closes the audit store.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close audit store")
		} else {
			a.log.Info().Msg("audit store closed")
		}
	}
}
