package config

import (
	"time"

	"formdesk/internal/formdesk/resilience"
)

// StoreConfig настройки работы с хранилищем записей.
type StoreConfig struct {
	PageSize         int           `yaml:"page_size" env:"FORMDESK_STORE_PAGE_SIZE" env-default:"10"`
	LoadingTimeout   time.Duration `yaml:"loading_timeout" env:"FORMDESK_STORE_LOADING_TIMEOUT" env-default:"30s"`
	BreakerThreshold int           `yaml:"breaker_threshold" env:"FORMDESK_STORE_BREAKER_THRESHOLD" env-default:"5"`
	BreakerTimeout   time.Duration `yaml:"breaker_timeout" env:"FORMDESK_STORE_BREAKER_TIMEOUT" env-default:"10s"`
	BreakerSuccesses int           `yaml:"breaker_successes" env:"FORMDESK_STORE_BREAKER_SUCCESSES" env-default:"2"`
}

// BreakerConfig возвращает настройки Circuit Breaker хранилища.
func (c *StoreConfig) BreakerConfig() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		ErrorThreshold:   c.BreakerThreshold,
		Timeout:          c.BreakerTimeout,
		SuccessThreshold: c.BreakerSuccesses,
	}
}
