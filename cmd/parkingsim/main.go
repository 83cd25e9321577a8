// Command parkingsim runs the parking allocation simulator: a parking
// manager, a handful of zones and spots, and a driver walking through a
// parking request, all in a single process. It serves /metrics and
// /healthz the way the teacher stack's API server does, minus the
// network-facing orchestration this system has no use for.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/config"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/logging"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/metrics"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/scenario"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "parkingsim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return fmt.Errorf("parsing configuration: %w", err)
	}

	logger, err := logging.New(&logging.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "parkingsim",
		Environment: "development",
	})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	reg := metrics.Default()
	sink := telemetry.NewMultiSink(telemetry.NewLoggingSink(logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scenarioCfg := scenario.Config{AuctionDeadline: cfg.AuctionDeadline, BidPace: cfg.BidPace}
	sys, err := scenario.Start(ctx, logger, sink, scenarioCfg)
	if err != nil {
		return fmt.Errorf("starting scenario: %w", err)
	}
	defer sys.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("serving metrics and health endpoints", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	logger.Info("running walkthrough scenario", zap.String("name", cfg.Scenario))
	result, err := sys.RunWalkthrough(ctx)
	if err != nil {
		logger.Error("walkthrough did not assign a spot", zap.Error(err))
	} else {
		logger.Info("walkthrough assigned a spot",
			zap.String("spot", result.SpotEndpoint.String()),
			zap.String("zone", result.ZoneEndpoint.String()),
			zap.Float64("price_hour", result.PriceHour),
		)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Error("http server error", zap.Error(err))
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}
