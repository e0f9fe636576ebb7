// Package db предоставляет функционал для работы с базой данных сервиса formdesk.
package db

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"formdesk/internal/formdesk/config"
	"formdesk/pkg/db/postgres"
	"formdesk/pkg/logger"
)

// Константы для сообщений logger.
const (
	LogDBInitializing    = "initializing record store database"
	LogDBInitialized     = "record store database initialized successfully"
	LogMigrationStarting = "starting record store migrations"
	LogMigrationSkipped  = "record store migrations disabled"
)

// Константы для сообщений об ошибках.
const (
	ErrDBMigrations      = "failed to apply record store migrations"
	ErrDBConnection      = "failed to connect to record store database"
	ErrGetPath           = "failed to get path"
	ErrDBCheckConnection = "error checking the database connection"
)

const filePrefix = "file://"

// DB представляет соединение с базой данных хранилища записей.
type DB struct {
	database *postgres.Database
}

// New инициализирует соединение с базой данных, предварительно применив миграции.
func New(ctx context.Context, cfg *config.PostgresConfig) (*DB, error) {
	log := logger.Log(ctx)

	log.Info(ctx, LogDBInitializing,
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.Int("min_conn", cfg.MinConn),
		zap.Int("max_conn", cfg.MaxConn))

	if cfg.MigrateOnStart {
		migrationsPath, err := MigrationsURL(cfg.MigrationsDir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrDBMigrations, err)
		}

		log.Info(ctx, LogMigrationStarting, zap.String("migrations_path", migrationsPath))
		if err := postgres.MigrateDSN(ctx, cfg.GetConnectionURL(), migrationsPath); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrDBMigrations, err)
		}
	} else {
		log.Info(ctx, LogMigrationSkipped)
	}

	database, err := postgres.New(ctx, cfg.GetDSN(), cfg.PoolOptions())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrDBConnection, err)
	}

	log.Info(ctx, LogDBInitialized)

	return &DB{
		database: database,
	}, nil
}

// MigrationsURL возвращает file:// URL каталога миграций.
func MigrationsURL(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return filePrefix + dir, nil
	}
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrGetPath, err)
	}
	return filePrefix + absPath, nil
}

// Close закрывает соединение с базой данных.
func (db *DB) Close(ctx context.Context) {
	db.database.Close(ctx)
}

// Pool возвращает пул соединений с базой данных.
func (db *DB) Pool() *pgxpool.Pool {
	return db.database.Pool()
}

// Ping проверяет соединение с базой данных.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.database.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrDBCheckConnection, err)
	}
	return nil
}
