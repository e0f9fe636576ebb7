package config

import "formdesk/internal/formdesk/domain/validation"

// ValidationConfig настройки проверки записей.
type ValidationConfig struct {
	StrictExpertise bool `yaml:"strict_expertise" env:"FORMDESK_VALIDATION_STRICT_EXPERTISE" env-default:"false"`
}

// Options возвращает опции валидатора.
func (c *ValidationConfig) Options() []validation.Option {
	var opts []validation.Option
	if c.StrictExpertise {
		opts = append(opts, validation.WithStrictExpertise())
	}
	return opts
}
