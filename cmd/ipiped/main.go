// ipiped hosts a set of static named pipes and relays everything written to
// them into rotating sink files. An optional admin API exposes health,
// per-pipe counters and Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bwHC-gko/ipipe"
	"github.com/bwHC-gko/ipipe/internal/config"
	"github.com/bwHC-gko/ipipe/internal/logs"
	"github.com/bwHC-gko/ipipe/internal/relay"
)

var (
	configFile string

	version = "v0.1.0" // injected by -ldflags at build time
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ipiped",
		Short:         "Daemon hosting static named pipes and relaying them to rotating files",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file path (default: ~/.ipiped/ipiped.yaml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logs.Setup(&cfg.Log)
	if err != nil {
		return fmt.Errorf("set up logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := ipipe.NewRegistry()
	// Relays drain on the handles being closed, so the registry teardown
	// below is what actually ends them on shutdown.
	defer func() {
		if err := registry.CloseAll(); err != nil {
			logger.Warn("registry teardown", zap.Error(err))
		}
	}()

	var wg sync.WaitGroup
	for _, pc := range cfg.Pipes {
		reader, err := registry.Init(pc.Name, ipipe.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("init pipe %s: %w", pc.Name, err)
		}
		logger.Info("pipe ready",
			zap.String("name", pc.Name), zap.String("path", reader.Path()))

		sink := &lumberjack.Logger{
			Filename:   cfg.SinkPath(pc),
			MaxSize:    pc.MaxSizeMB,
			MaxBackups: pc.MaxBackups,
		}
		rl := relay.New(pc.Name, reader, sink, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rl.Run(ctx); err != nil {
				logger.Error("relay failed", zap.String("pipe", rl.Name()), zap.Error(err))
			}
		}()
	}

	srvDone := make(chan error, 1)
	if cfg.Listen != "" {
		srv := newAdminServer(cfg.Listen, registry, logger)
		go func() { srvDone <- srv.serve(ctx) }()
	} else {
		close(srvDone)
	}

	logger.Info("ipiped started",
		zap.String("version", version),
		zap.Int("pipes", len(cfg.Pipes)),
		zap.String("listen", cfg.Listen))

	<-ctx.Done()
	logger.Info("shutting down")

	// Order matters: close the pipes so the relays' blocked reads return,
	// then wait for the drained relays before the final log line.
	if err := registry.CloseAll(); err != nil {
		logger.Warn("registry teardown", zap.Error(err))
	}
	wg.Wait()
	if err := <-srvDone; err != nil {
		logger.Warn("admin server", zap.Error(err))
	}
	logger.Info("ipiped stopped")
	return nil
}
