package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/musicman/internal/repositories"
	"github.com/desertthunder/musicman/internal/server"
	"github.com/desertthunder/musicman/internal/services"
	"github.com/desertthunder/musicman/internal/session"
	"github.com/desertthunder/musicman/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultShutdownTimeout = 10 * time.Second

// backend is the wired session manager and router plus everything that must be released on shutdown.
type backend struct {
	handler  http.Handler
	manager  *session.Manager
	handles  *server.Handles
	sweeper  *session.Sweeper
	recorder *repositories.EventRecorder
	db       *sql.DB
}

// start launches the background sweeper.
func (b *backend) start() {
	b.sweeper.Start()
}

// close stops the sweeper, flushes queued audit events and closes the database.
func (b *backend) close() error {
	if b.sweeper != nil {
		b.sweeper.Stop()
	}
	if b.recorder != nil {
		b.recorder.Close()
	}
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// newBackend wires the Spotify client, refresh client, session manager, audit recorder and router from config.
//
// The audit log is skipped when database.path is empty.
func (r *Runner) newBackend(config *shared.Config) (*backend, error) {
	spotifyCfg := config.Credentials.Spotify

	spotify, err := services.NewSpotifyClient(spotifyCfg, r.httpClient)
	if err != nil {
		return nil, err
	}

	refresher, err := session.NewRefreshClient(session.RefreshClientOpts{
		ClientID:     spotifyCfg.ClientID,
		ClientSecret: spotifyCfg.ClientSecret,
		TokenURL:     spotifyCfg.TokenURL,
		Timeout:      config.Session.RefreshTimeout.Duration,
	})
	if err != nil {
		return nil, err
	}

	observers := session.MultiObserver{session.NewLogObserver(shared.WithLogger(r.logger, "component", "session"))}

	b := &backend{}
	if config.Database.Path != "" {
		db, err := shared.OpenDatabase(config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit database: %w", err)
		}
		b.db = db
		b.recorder = repositories.NewEventRecorder(repositories.NewEventRepository(db), r.logger, repositories.DefaultRecorderBuffer)
		observers = append(observers, b.recorder)
	}

	manager, err := session.NewManager(session.ManagerOpts{
		Refresher:     refresher,
		Observer:      observers,
		RefreshMargin: config.Session.RefreshMargin.Duration,
		SingleFlight:  config.Session.SingleFlight,
	})
	if err != nil {
		b.close()
		return nil, err
	}

	b.manager = manager
	b.handles = server.NewHandles(0)
	b.sweeper = session.NewSweeper(manager, r.logger, config.Session.SweepInterval.Duration)
	b.handler = server.New(server.Options{
		Config:   config.Server,
		Sessions: manager,
		Spotify:  spotify,
		OAuth:    spotify,
		Handles:  b.handles,
		Logger:   r.logger,
	})
	return b, nil
}

// Serve starts the HTTP server and blocks until SIGINT or SIGTERM, then shuts down gracefully.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	addr := config.Server.Addr()
	if a := cmd.String("addr"); a != "" {
		addr = a
	}

	b, err := r.newBackend(config)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			r.logger.Warn("failed to close backend", "err", err)
		}
	}()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b.start()
	srv := server.NewHTTPServer(config.Server, b.handler)
	return r.runServer(ctx, srv, ln, config.Server.ShutdownTimeout.Duration)
}

// runServer serves on ln until ctx is done, then drains in-flight requests for up to timeout.
func (r *Runner) runServer(ctx context.Context, srv *http.Server, ln net.Listener, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	r.logger.Info("shutting down server", "timeout", timeout)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	<-errCh

	r.logger.Info("server stopped")
	return nil
}
