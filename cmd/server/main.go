// Package main is the entry point for the academy ledger API server. It
// wires PostgreSQL, Redis, the mint services, and the event bus into the
// command and query handlers and serves them over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/academy-hub/academy-ledger/config"
	"github.com/academy-hub/academy-ledger/internal/application/command"
	"github.com/academy-hub/academy-ledger/internal/application/query"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
	"github.com/academy-hub/academy-ledger/internal/infrastructure/external/credentialservice"
	"github.com/academy-hub/academy-ledger/internal/infrastructure/external/tokenservice"
	"github.com/academy-hub/academy-ledger/internal/infrastructure/messaging"
	"github.com/academy-hub/academy-ledger/internal/infrastructure/persistence/postgres"
	"github.com/academy-hub/academy-ledger/internal/infrastructure/persistence/redis"
	httpapi "github.com/academy-hub/academy-ledger/internal/interface/http"
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
	// .env is for local development; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	}).With(logger.String("app", cfg.App.Name), logger.String("version", cfg.App.Version))

	log.Info("starting ledger server", logger.String("env", string(cfg.App.Environment)))

	// ─────────────────────────────────────────────────────────────────────────
	// PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────
	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer conn.Close()

	if cfg.Database.RunMigrations {
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		log.Info("migrations applied")
	}

	store := postgres.NewStore(conn)
	repos := store.Repositories()

	// ─────────────────────────────────────────────────────────────────────────
	// Redis: cache, replay guard, event transport
	// ─────────────────────────────────────────────────────────────────────────
	var (
		cache       *redis.Cache
		replayGuard *redis.ReplayGuard
		leaderboard *redis.StreakLeaderboard
		bus         shared.EventBus
	)
	if cfg.Redis.Disabled {
		log.Warn("redis disabled: no caching, no replay protection")
		memBus := messaging.NewInMemoryBus(messaging.BusConfig{Async: true, Workers: 8, Logger: log})
		defer memBus.Close()
		bus = memBus
	} else {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns

		cache, err = redis.NewCache(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer cache.Close()
		replayGuard = redis.NewReplayGuard(cache)

		redisBus, err := messaging.NewRedisBus(messaging.RedisBusConfig{
			Client: cache.Client(),
			Local:  messaging.DefaultBusConfig(),
			Logger: log,
		})
		if err != nil {
			return fmt.Errorf("start event bus: %w", err)
		}
		defer redisBus.Close()
		bus = redisBus

		leaderboard = redis.NewStreakLeaderboard(cache, log)
		if err := bus.Subscribe(shared.EventLessonCompleted, leaderboard.HandleEvent); err != nil {
			return fmt.Errorf("subscribe leaderboard: %w", err)
		}
		if err := bus.Subscribe(shared.EventStreakBroken, leaderboard.HandleEvent); err != nil {
			return fmt.Errorf("subscribe leaderboard: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Mint services
	// ─────────────────────────────────────────────────────────────────────────
	rewardsCfg := tokenservice.DefaultConfig(cfg.Issuers.TokenServiceURL)
	rewardsCfg.APIKey = cfg.Issuers.TokenServiceKey
	rewardsCfg.Timeout = cfg.Issuers.RequestTimeout
	rewardsCfg.Logger = log
	rewards := tokenservice.NewClient(rewardsCfg)

	credentialsCfg := credentialservice.DefaultConfig(cfg.Issuers.CredentialServiceURL)
	credentialsCfg.APIKey = cfg.Issuers.CredentialServiceKey
	credentialsCfg.Timeout = cfg.Issuers.RequestTimeout
	credentialsCfg.Logger = log
	credentials := credentialservice.NewClient(credentialsCfg)

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpapi.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.EnableCORS = cfg.HTTP.EnableCORS
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.Auth = httpapi.AuthConfig{
		JWTSecret:    cfg.HTTP.JWTSecret,
		JWTIssuer:    cfg.HTTP.JWTIssuer,
		APIKeyHeader: "X-API-Key",
		ServiceKeys:  cfg.HTTP.ServiceKeys,
	}

	server := httpapi.NewServer(httpCfg, httpapi.Dependencies{
		InitializePlatform: command.NewInitializePlatformHandler(store, bus),
		UpdateConfig:       command.NewUpdateConfigHandler(store, bus),
		CreateSeason:       command.NewCreateSeasonHandler(store, bus),
		CloseSeason:        command.NewCloseSeasonHandler(store, bus),
		CreateCourse:       command.NewCreateCourseHandler(store, bus),
		UpdateCourse:       command.NewUpdateCourseHandler(store, bus),
		InitLearner:        command.NewInitLearnerHandler(store, bus),
		RegisterReferral:   command.NewRegisterReferralHandler(store, bus),
		AwardStreakFreeze:  command.NewAwardStreakFreezeHandler(store, bus),
		Enroll:             command.NewEnrollHandler(store, bus),
		CloseEnrollment:    command.NewCloseEnrollmentHandler(store, bus),
		CompleteLesson:     command.NewCompleteLessonHandler(store, bus, rewards),
		FinalizeCourse:     command.NewFinalizeCourseHandler(store, bus, rewards),
		ClaimBonus:         command.NewClaimCompletionBonusHandler(store, bus, rewards),
		ClaimAchievement:   command.NewClaimAchievementHandler(store, bus, rewards),
		IssueCredential:    command.NewIssueCredentialHandler(store, bus, credentials),

		GetLearnerProgress: query.NewGetLearnerProgressHandler(repos.Learners, repos.Enrollments, repos.Platform),
		GetCourse:          query.NewGetCourseHandler(repos.Courses),
		ListCourses:        query.NewListCoursesHandler(repos.Courses),
		GetEnrollment:      query.NewGetEnrollmentHandler(repos.Enrollments, repos.Courses),
		GetPlatformStatus:  query.NewGetPlatformStatusHandler(repos.Platform),

		Cache:       cache,
		ReplayGuard: replayGuard,
		Leaderboard: leaderboard,
		Health: func(ctx context.Context) error {
			if err := conn.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if cache != nil {
				if err := cache.Ping(ctx); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
			}
			return nil
		},
		Logger: log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// Shutdown
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	log.Info("server stopped")
	return nil
}
