// Package config содержит конфигурацию сервиса formdesk.
package config

import (
	"context"

	"go.uber.org/zap"

	pkgconfig "formdesk/pkg/config"
	"formdesk/pkg/logger"
)

// ServiceName имя сервиса в журналах.
const ServiceName = "formdesk"

// Константы сообщений для конфигурации.
const (
	LogConfigSummary = "formdesk configuration"
)

// Config представляет полную конфигурацию сервиса.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Session    SessionConfig    `yaml:"session"`
	Store      StoreConfig      `yaml:"store"`
	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Shutdown   ShutdownConfig   `yaml:"shutdown"`
}

// Load загружает конфигурацию из env-файла (если он есть) и переменных окружения.
func Load(ctx context.Context, envPath string) (*Config, error) {
	cfg, err := pkgconfig.Load[Config](ctx, ServiceName, envPath)
	if err != nil {
		return nil, err
	}

	logger.Log(ctx).Info(ctx, LogConfigSummary,
		zap.String("http_address", cfg.HTTP.GetAddress()),
		zap.String("grpc_address", cfg.GRPC.GetAddress()),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.String("session_backend", cfg.Session.Backend),
		zap.Int("page_size", cfg.Store.PageSize),
		zap.String("log_level", cfg.Logging.Level),
		zap.String("log_mode", cfg.Logging.Mode),
		zap.Int("shutdown_timeout_seconds", cfg.Shutdown.Timeout))

	return cfg, nil
}
