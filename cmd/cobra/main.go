// Command cobra serves the chess engine to a client, over a websocket by
// default or over stdin/stdout with -stdio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/rs/zerolog"

	"github.com/george-m2/cobra/internal/config"
	"github.com/george-m2/cobra/internal/logging"
	"github.com/george-m2/cobra/internal/server"
	"github.com/george-m2/cobra/internal/session"
	"github.com/george-m2/cobra/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "cobra:", err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := config.Load(config.SettingsFilePath())
	if err != nil {
		return err
	}

	config.RegisterFlags(flag.CommandLine, &settings)
	stdio := flag.Bool("stdio", false, "serve one session on stdin/stdout instead of the websocket")
	fen := flag.String("fen", "", "start games from this position")
	prof := flag.String("profile", "", "write a cpu or mem profile to the working directory")
	flag.Parse()

	if err := settings.Validate(); err != nil {
		return err
	}
	logger := logging.New(settings.Logs.Style, settings.Logs.Level, os.Stderr)

	switch *prof {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile %q, want cpu or mem", *prof)
	}

	store := openStorage(settings, logger)
	if store != nil {
		defer store.Close()
		if err := store.SaveSettings(settings); err != nil {
			logger.Warn().Err(err).Msg("saving settings")
		}
	}

	opts := session.Options{
		Settings:   settings,
		OpenOracle: session.StockfishOpener(logger),
		Logger:     logger,
		StartFEN:   *fen,
	}
	// A nil *Storage must not become a non-nil Recorder.
	if store != nil {
		opts.Recorder = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *stdio {
		sess, err := session.New(opts)
		if err != nil {
			return err
		}
		defer sess.Close()
		return sess.RunLines(ctx, os.Stdin, os.Stdout)
	}

	factory := func() (*session.Session, error) { return session.New(opts) }
	var statsStore server.Store
	if store != nil {
		statsStore = store
	}
	srv := server.New(factory, statsStore, logger)
	srv.OnShutdown = stop

	return serve(ctx, settings.Addr, srv.Handler(), logger)
}

func openStorage(settings config.Settings, logger zerolog.Logger) *storage.Storage {
	var (
		store *storage.Storage
		err   error
	)
	if settings.DataDir != "" {
		store, err = storage.Open(filepath.Join(settings.DataDir, "db"))
	} else {
		store, err = storage.NewStorage()
	}
	if err != nil {
		logger.Warn().Err(err).Msg("storage unavailable, games will not be recorded")
		return nil
	}
	return store
}

func serve(ctx context.Context, addr string, h http.Handler, logger zerolog.Logger) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
