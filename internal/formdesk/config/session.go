package config

import "time"

// Хранилища сессий.
const (
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// SessionConfig настройки сессий посетителей.
type SessionConfig struct {
	Backend    string        `yaml:"backend" env:"FORMDESK_SESSION_BACKEND" env-default:"redis"`
	TTL        time.Duration `yaml:"ttl" env:"FORMDESK_SESSION_TTL" env-default:"24h"`
	CookieName string        `yaml:"cookie_name" env:"FORMDESK_SESSION_COOKIE" env-default:"formdesk_session"`
	Secure     bool          `yaml:"secure" env:"FORMDESK_SESSION_SECURE" env-default:"false"`
}

// UseMemory сообщает, выбрано ли хранилище в памяти.
func (c *SessionConfig) UseMemory() bool {
	return c.Backend == SessionBackendMemory
}
