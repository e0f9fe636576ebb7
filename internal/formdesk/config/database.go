package config

import (
	"fmt"
	"time"

	"formdesk/pkg/db/postgres"
)

// PostgresConfig содержит настройки подключения к хранилищу записей.
type PostgresConfig struct {
	Host           string `yaml:"host" env:"FORMDESK_POSTGRES_HOST" env-default:"0.0.0.0"`
	Port           int    `yaml:"port" env:"FORMDESK_POSTGRES_PORT" env-default:"5432"`
	User           string `yaml:"user" env:"FORMDESK_POSTGRES_USER" env-default:"postgres"`
	Password       string `yaml:"password" env:"FORMDESK_POSTGRES_PASSWORD" env-default:"postgres"`
	Database       string `yaml:"database" env:"FORMDESK_POSTGRES_DB" env-default:"formdesk"`
	SSLMode        string `yaml:"ssl_mode" env:"FORMDESK_POSTGRES_SSLMODE" env-default:"disable"`
	MinConn        int    `yaml:"min_conn" env:"FORMDESK_POSTGRES_MIN_CONN" env-default:"1"`
	MaxConn        int    `yaml:"max_conn" env:"FORMDESK_POSTGRES_MAX_CONN" env-default:"10"`
	MigrationsDir  string `yaml:"migrations_dir" env:"FORMDESK_MIGRATIONS_DIR" env-default:"migrations/formdesk"`
	MigrateOnStart bool   `yaml:"migrate_on_start" env:"FORMDESK_MIGRATE_ON_START" env-default:"true"`

	MaxConnLifetime   time.Duration `yaml:"max_conn_lifetime" env:"FORMDESK_POSTGRES_MAX_CONN_LIFETIME" env-default:"1h"`
	MaxConnIdleTime   time.Duration `yaml:"max_conn_idle_time" env:"FORMDESK_POSTGRES_MAX_CONN_IDLE_TIME" env-default:"30m"`
	HealthCheckPeriod time.Duration `yaml:"health_check_period" env:"FORMDESK_POSTGRES_HEALTH_CHECK_PERIOD" env-default:"1m"`
}

// PoolOptions возвращает параметры пула соединений.
func (p *PostgresConfig) PoolOptions() postgres.PoolOptions {
	return postgres.PoolOptions{
		MinConns:          p.MinConn,
		MaxConns:          p.MaxConn,
		MaxConnLifetime:   p.MaxConnLifetime,
		MaxConnIdleTime:   p.MaxConnIdleTime,
		HealthCheckPeriod: p.HealthCheckPeriod,
	}
}

// GetDSN возвращает строку подключения к Postgres.
func (p *PostgresConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// GetConnectionURL возвращает URL-строку подключения для миграций.
func (p *PostgresConfig) GetConnectionURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}
