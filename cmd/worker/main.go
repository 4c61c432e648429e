// Package main is the entry point for the stock ledger background worker.
// It refreshes the stock of the watched articles on a fixed interval and logs each snapshot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockledger/internal/app"
	"stockledger/internal/domain/monitor"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/config"
	"stockledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.App.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log = log.WithComponent("worker")

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	targets, err := monitor.ParseTargets(cfg.Monitor.Watch)
	if err != nil {
		log.Fatalw("invalid MONITOR_WATCH", "error", err)
	}
	if len(targets) == 0 {
		log.Fatalw("nothing to watch: set MONITOR_WATCH to article:unit[:warehouse],...")
	}

	log.Infow("starting stockledger worker", "targets", len(targets), "interval", cfg.Monitor.Interval)

	pool, err := postgres.NewPool(ctx, postgres.PoolConfigFrom(cfg.DB))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	ledger, err := app.NewLedger(ctx, cfg, pool)
	if err != nil {
		log.Fatalw("failed to build ledger", "error", err)
	}
	defer ledger.Close()

	mon := monitor.New(ledger.Stock, monitor.Config{
		Interval: cfg.Monitor.Interval,
		Targets:  targets,
	})
	if err := mon.Start(ctx); err != nil {
		log.Fatalw("failed to start monitor", "error", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		statsTicker := time.NewTicker(10 * time.Minute)
		defer statsTicker.Stop()

		for {
			select {
			case snap, ok := <-mon.Snapshots():
				if !ok {
					return
				}
				logSnapshot(log, snap)
			case <-statsTicker.C:
				postgres.LogPoolStats(ctx, pool.Unwrap())
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	mon.Stop()
	<-done
	log.Info("worker stopped")
}

func logSnapshot(log *logger.Logger, snap monitor.Snapshot) {
	for _, l := range snap.Levels {
		kv := []any{
			"run_id", snap.RunID,
			"target", l.Target.String(),
			"quantity", l.Quantity.String(),
		}
		if l.Err != nil {
			log.Warnw("stock level unavailable", append(kv, "error", l.Err)...)
			continue
		}
		log.Infow("stock level", kv...)
	}
}
