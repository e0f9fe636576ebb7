// Package main реализует точку входа сервиса formdesk.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"formdesk/internal/formdesk/adapters/cache"
	"formdesk/internal/formdesk/adapters/grpc"
	httpServer "formdesk/internal/formdesk/adapters/http"
	"formdesk/internal/formdesk/adapters/memory"
	"formdesk/internal/formdesk/adapters/postgres"
	"formdesk/internal/formdesk/app"
	"formdesk/internal/formdesk/config"
	"formdesk/internal/formdesk/db"
	"formdesk/internal/formdesk/domain/validation"
	"formdesk/internal/formdesk/ports/sessions"
	"formdesk/internal/formdesk/resilience"
	redisdb "formdesk/pkg/db/redis"
	"formdesk/pkg/logger"
	"formdesk/pkg/shutdown"
)

// Константы для переменных окружения.
const (
	EnvLoggerMode  = "FORMDESK_LOGGER_MODE"
	EnvLoggerLevel = "FORMDESK_LOGGER_LEVEL"
)

// Константы для сообщений об ошибках.
const (
	ErrInitLogger           = "failed to initialize logger"
	ErrSyncLogger           = "failed to sync logger"
	ErrLoadConfig           = "failed to load configuration"
	ErrInitLoggerWithConfig = "failed to initialize logger with configuration settings"
	ErrInitDB               = "failed to initialize database"
	ErrCreateRedisClient    = "failed to create Redis client"
	ErrInitViews            = "failed to parse page templates"
	ErrStartHTTPServer      = "failed to start HTTP server"
	ErrStartGRPC            = "failed to start gRPC server"
)

// Константы для игнорируемых ошибок.
const (
	ErrSyncStderr = "sync /dev/stderr: invalid argument"
	ErrSyncStdout = "sync /dev/stdout: invalid argument"
)

// Константы для сообщений сервиса.
const (
	LogServiceStarted      = "formdesk service started"
	LogServiceShutdownDone = "formdesk service shutdown complete"
	LogInitStore           = "initializing record store"
	LogInitSessions        = "initializing session store"
	LogInitUseCases        = "initializing use cases"
	LogInitHTTPServer      = "initializing HTTP server"
	LogStartingHTTP        = "starting HTTP server"
	LogStartingGRPC        = "starting gRPC health server"
	LogClosingDB           = "closing database connections"
	LogClosingRedis        = "closing Redis connection"
	LogStoppingHTTP        = "stopping HTTP server"
	LogStoppingGRPC        = "stopping gRPC server"
)

// closer освобождает ресурсы хранилища сессий.
type closer func(ctx context.Context) error

func main() {
	envPath := flag.String("env", ".env", "path to env file")
	flag.Parse()

	env := logger.Development
	if strings.ToLower(os.Getenv(EnvLoggerMode)) == "production" {
		env = logger.Production
	}

	log, err := logger.NewLogger(env, os.Getenv(EnvLoggerLevel))
	if err != nil {
		panic(ErrInitLogger + ": " + err.Error())
	}

	logger.SetGlobalLogger(log)

	ctx := logger.NewRequestIDContext(context.Background(), "")

	var exitCode int

	func() {
		defer func() {
			if err := log.Sync(); err != nil {
				errMsg := err.Error()
				if strings.Contains(errMsg, ErrSyncStderr) || strings.Contains(errMsg, ErrSyncStdout) {
					return
				}
				if _, writeErr := fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSyncLogger, err); writeErr != nil {
					panic(writeErr)
				}
			}
		}()

		cfg, err := config.Load(ctx, *envPath)
		if err != nil {
			log.Error(ctx, ErrLoadConfig, zap.Error(err))
			exitCode = 1
			return
		}

		finalLogger, err := logger.NewLogger(cfg.Logging.GetEnvironment(), cfg.Logging.Level)
		if err != nil {
			log.Error(ctx, ErrInitLoggerWithConfig, zap.Error(err))
			exitCode = 1
			return
		}
		logger.SetGlobalLogger(finalLogger)
		log = finalLogger

		database, err := db.New(ctx, &cfg.Postgres)
		if err != nil {
			log.Error(ctx, ErrInitDB, zap.Error(err))
			exitCode = 1
			return
		}

		log.Info(ctx, LogServiceStarted,
			zap.String("environment", string(cfg.Logging.GetEnvironment())),
			zap.String("log_level", cfg.Logging.Level),
			zap.String("startup_time", time.Now().Format(time.RFC3339)))

		log.Info(ctx, LogInitStore)
		store := resilience.NewRecordStore(postgres.NewRecordStore(database.Pool()), cfg.Store.BreakerConfig())

		log.Info(ctx, LogInitSessions, zap.String("backend", cfg.Session.Backend))
		sessionStore, closeSessions, err := newSessionStore(ctx, cfg)
		if err != nil {
			log.Error(ctx, ErrCreateRedisClient, zap.Error(err))
			database.Close(ctx)
			exitCode = 1
			return
		}

		log.Info(ctx, LogInitUseCases)
		submission := app.NewSubmissionUseCase(store, sessionStore, validation.New(cfg.Validation.Options()...))
		browser := app.NewBrowserUseCase(store, sessionStore, cfg.Store.PageSize,
			app.WithLoadingTimeout(cfg.Store.LoadingTimeout))

		log.Info(ctx, LogInitHTTPServer)
		views, err := httpServer.NewViews()
		if err != nil {
			log.Error(ctx, ErrInitViews, zap.Error(err))
			exitCode = 1
			return
		}

		fiberApp := httpServer.NewServer(httpServer.ServerOptions{
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		})
		httpServer.SetupRouter(fiberApp, httpServer.Dependencies{
			Submission: submission,
			Browser:    browser,
			Health:     store,
			Views:      views,
			Logger:     log,
			Session: httpServer.SessionOptions{
				CookieName: cfg.Session.CookieName,
				TTL:        cfg.Session.TTL,
				Secure:     cfg.Session.Secure,
			},
		})

		log.Info(ctx, LogStartingGRPC)
		grpcServer := grpc.New(cfg.GRPC.GetAddress())
		if err := grpcServer.Start(ctx); err != nil {
			log.Error(ctx, ErrStartGRPC, zap.Error(err))
			exitCode = 1
			return
		}

		healthCtx, stopHealth := context.WithCancel(ctx)
		defer stopHealth()
		go grpc.NewHealthReporter(grpcServer.Health(), store, cfg.GRPC.HealthInterval).Run(healthCtx)

		log.Info(ctx, LogStartingHTTP, zap.String("address", cfg.HTTP.GetAddress()))
		go func() {
			if err := fiberApp.Listen(cfg.HTTP.GetAddress()); err != nil {
				log.Error(ctx, ErrStartHTTPServer, zap.Error(err))
			}
		}()

		// HTTP сервер останавливается до закрытия хранилищ, чтобы запросы в полете
		// успели записать состояние сессий.
		shutdown.Wait(ctx, cfg.Shutdown.GetTimeout(),
			shutdown.Sequence(
				func(ctx context.Context) error {
					log.Info(ctx, LogStoppingHTTP)
					stopHealth()
					return fiberApp.ShutdownWithContext(ctx)
				},
				func(ctx context.Context) error {
					log.Info(ctx, LogClosingRedis)
					return closeSessions(ctx)
				},
				func(ctx context.Context) error {
					log.Info(ctx, LogClosingDB)
					database.Close(ctx)
					return nil
				},
			),
			func(ctx context.Context) error {
				log.Info(ctx, LogStoppingGRPC)
				return grpcServer.Stop(ctx)
			},
		)

		log.Info(ctx, LogServiceShutdownDone)
	}()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// newSessionStore выбирает хранилище сессий по конфигурации.
func newSessionStore(ctx context.Context, cfg *config.Config) (sessions.Store, closer, error) {
	if cfg.Session.UseMemory() {
		return memory.NewSessionStore(cfg.Session.TTL), func(context.Context) error { return nil }, nil
	}

	client, err := redisdb.NewClient(ctx, cfg.Redis.ClientConfig())
	if err != nil {
		return nil, nil, err
	}
	return cache.NewSessionStore(client.RawClient(), cfg.Session.TTL), client.Close, nil
}
