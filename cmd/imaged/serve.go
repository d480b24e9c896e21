package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"imaged/internal/backend"
	"imaged/internal/client"
	"imaged/internal/config"
	"imaged/internal/dedup"
	"imaged/internal/gateway"
	"imaged/internal/httpapi"
	"imaged/internal/logging"
	"imaged/internal/manager"
	"imaged/internal/resolver"
	"imaged/internal/scheduler"
)

const (
	shutdownTimeout = 5 * time.Second
	healthInterval  = 5 * time.Second
)

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	log, closer := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ci := gateway.NewCipher(cfg.EncryptionEnabled, cfg.EncryptionSecret)

	be, err := buildBackend(ctx, cfg, ci, log)
	if err != nil {
		return err
	}
	dd, closeDedup, err := buildDedup(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDedup()

	res := resolver.New(resolver.Config{Backend: be, ModelsDir: cfg.ModelsDir, Log: log})
	mgr, err := manager.New(manager.Config{
		Backend:       be,
		Resolver:      res,
		Schedulers:    scheduler.NewRegistry(log),
		Dedup:         dd,
		ModelsDir:     cfg.ModelsDir,
		OutputsDir:    cfg.OutputsDir,
		DefaultModel:  cfg.DefaultModel,
		Retention:     cfg.Retention(),
		SweepInterval: cfg.SweepInterval(),
		DedupWindow:   cfg.DedupWindow(),
		MaxConcurrent: cfg.MaxConcurrent,
		Log:           log,
	})
	if err != nil {
		return fmt.Errorf("init manager: %w", err)
	}

	httpapi.SetLogger(log)
	httpapi.SetCipher(ci)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetLoadTimeout(cfg.LoadTimeout())
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	httpapi.SetRequestLogLevel(cfg.HTTPLogLevel)
	httpapi.SetBaseContext(ctx)

	go mgr.Run(ctx)
	go mgr.Preload(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Addr).
			Str("backend", cfg.Backend).
			Str("dedup", cfg.DedupBackend).
			Bool("encryption", ci.Enabled()).
			Msg("imaged listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := mgr.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("jobs still running at shutdown")
	}
	return nil
}

// buildBackend returns the configured backend. The http kind is health checked once
// and then watched in the background.
func buildBackend(ctx context.Context, cfg config.Config, ci *gateway.Cipher, log zerolog.Logger) (backend.Backend, error) {
	switch cfg.Backend {
	case config.BackendHTTP:
		c := client.New(cfg.BackendURL, client.WithCipher(ci))
		r := backend.NewRemote(c, 0, log.With().Str("component", "remote").Logger())
		if err := r.CheckHealth(ctx); err != nil {
			log.Warn().Err(err).Msg("remote worker not reachable yet")
		}
		go r.Watch(ctx, healthInterval)
		return r, nil
	case config.BackendSynthetic, "":
		return backend.NewSynthetic(backend.SyntheticConfig{
			Device:    cfg.Device,
			StepDelay: cfg.StepDelay(),
			Log:       log.With().Str("component", "synthetic").Logger(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// buildDedup returns the dedup store and its closer.
func buildDedup(ctx context.Context, cfg config.Config) (dedup.Store, func(), error) {
	switch cfg.DedupBackend {
	case config.DedupRedis:
		s, err := dedup.NewRedisStore(cfg.RedisURL, cfg.DedupWindow())
		if err != nil {
			return nil, nil, fmt.Errorf("redis dedup: %w", err)
		}
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.Ping(pctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("redis dedup ping: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case config.DedupMemory, "":
		return dedup.NewMemoryStore(cfg.DedupWindow(), nil), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown dedup backend %q", cfg.DedupBackend)
	}
}
