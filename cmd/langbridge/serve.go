package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"langbridge/internal/bridge"
	"langbridge/internal/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge daemon",
		Long: `Serve loads the configuration, binds the control endpoint, and waits
for start/stop commands. Language servers are spawned lazily on the
first start request for a language and project root.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if controlAddr != "" {
		cfg.ControlAddr = controlAddr
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := bridge.NewSupervisor(cfg, logger)
	defer sup.Close()

	ctrl, err := bridge.NewControlServer(cfg.ControlAddr, sup, logger)
	if err != nil {
		return err
	}
	logger.Info("control endpoint listening", "addr", ctrl.Addr())
	fmt.Println(ctrl.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Serve(gctx)
	})

	if configPath != "" {
		watcher, werr := config.NewWatcher(configPath, func(next *config.Config) {
			sup.SetConfig(next)
		}, logger)
		if werr != nil {
			logger.Warn("config watch disabled", "error", werr)
		} else {
			g.Go(func() error {
				return watcher.Run(gctx)
			})
		}
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func newLogger(level string) *slog.Logger {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))
}
