// Package main is the entry point for the academy ledger worker. It runs
// the background jobs: the daily streak risk sweep and the periodic cache
// sweep.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/academy-hub/academy-ledger/config"
	"github.com/academy-hub/academy-ledger/internal/infrastructure/persistence/postgres"
	"github.com/academy-hub/academy-ledger/internal/infrastructure/persistence/redis"
	"github.com/academy-hub/academy-ledger/internal/infrastructure/scheduler"
	"github.com/academy-hub/academy-ledger/internal/infrastructure/scheduler/jobs"
	"github.com/academy-hub/academy-ledger/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled, nothing to run")
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	}).With(logger.String("app", cfg.App.Name+"-worker"), logger.String("version", cfg.App.Version))

	log.Info("starting ledger worker", logger.String("env", string(cfg.App.Environment)))

	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer conn.Close()

	repos := postgres.NewStore(conn).Repositories()

	sched := scheduler.New(log)

	streakJob := jobs.NewStreakRiskJob(repos.Learners, jobs.NewLogNotifier(log), log)
	streakAt := scheduler.DailyAt{
		Hour:   cfg.Scheduler.StreakSweepHour,
		Minute: cfg.Scheduler.StreakSweepMinute,
	}
	if err := sched.Register(streakJob, streakAt); err != nil {
		return err
	}

	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		cache, err := redis.NewCache(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer cache.Close()

		sweep := jobs.NewCacheSweepJob(cache, log)
		if err := sched.Register(sweep, scheduler.Every(cfg.Scheduler.CacheSweepInterval)); err != nil {
			return err
		}
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	sched.Stop()
	log.Info("worker stopped")
	return nil
}
