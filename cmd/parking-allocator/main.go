package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"parking-allocator/internal/config"
	"parking-allocator/internal/logging"
	"parking-allocator/internal/parking"
	"parking-allocator/internal/server"
	"parking-allocator/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var mode, port, configPath string

	flagSet := pflag.NewFlagSet("parking-allocator", pflag.ContinueOnError)
	flagSet.StringVar(&mode, "mode", "cli", "mode to run: cli, server, or both")
	flagSet.StringVar(&port, "port", "", "port for the HTTP server (overrides APP_PORT)")
	flagSet.StringVar(&configPath, "config", "", "YAML file overlaid on the environment configuration")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg := config.Load()
	if configPath != "" {
		loaded, err := config.LoadFile(configPath, cfg)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if port != "" {
		cfg.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.New(ctx, telemetry.Config{
		ServiceName: cfg.OTelServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTelEndpoint,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer shutdownTelemetry(provider)

	logging.Init(cfg.OTelServiceName, cfg.Environment)

	allocator, err := newAllocator(cfg, provider)
	if err != nil {
		return err
	}

	switch mode {
	case "cli":
		return runCLI(ctx, allocator)
	case "server":
		return runServer(ctx, cfg, allocator)
	case "both":
		return runBoth(ctx, cfg, allocator)
	default:
		return fmt.Errorf("invalid mode %q: must be cli, server, or both", mode)
	}
}

// newAllocator builds the single allocator shared by every front end.
func newAllocator(cfg *config.Config, provider *telemetry.Provider) (*parking.InstrumentedAllocator, error) {
	accounting, err := parking.ParseReleaseAccounting(cfg.ReleaseAccounting)
	if err != nil {
		return nil, err
	}

	allocator, err := parking.NewAllocator(parking.Capacities{
		Compact:    cfg.Capacities.Compact,
		Large:      cfg.Capacities.Large,
		TwoWheeler: cfg.Capacities.TwoWheeler,
	}, parking.WithReleaseAccounting(accounting))
	if err != nil {
		return nil, err
	}

	capacity := allocator.Capacities()
	logging.Info(context.Background(), "allocator ready",
		"compact", capacity.Compact,
		"large", capacity.Large,
		"two_wheeler", capacity.TwoWheeler,
		"release_accounting", accounting.String(),
	)

	return parking.NewInstrumentedAllocator(allocator, provider)
}

func runCLI(ctx context.Context, allocator *parking.InstrumentedAllocator) error {
	return parking.NewShell(allocator, os.Stdin, os.Stdout).Run(ctx)
}

func runServer(ctx context.Context, cfg *config.Config, allocator *parking.InstrumentedAllocator) error {
	srv := server.NewServer(cfg.Port, cfg.OTelServiceName, allocator)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runBoth serves HTTP until a signal arrives or the shell exits. The shell
// may still be blocked on stdin when the process returns.
func runBoth(ctx context.Context, cfg *config.Config, allocator *parking.InstrumentedAllocator) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		if err := runCLI(ctx, allocator); err != nil {
			logging.Error(ctx, "shell stopped", "error", err)
			return
		}
		logging.Info(ctx, "shell exited")
	}()

	return runServer(ctx, cfg, allocator)
}

func shutdownTelemetry(provider *telemetry.Provider) {
	logging.Info(context.Background(), "shutting down telemetry")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := provider.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error shutting down telemetry: %v\n", err)
	}
}
