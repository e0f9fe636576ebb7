// Package config предоставляет функциональность для загрузки конфигурации из .env файла и переменных окружения.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"

	"formdesk/pkg/logger"
)

const (
	msgLoadingConfiguration    = "loading configuration"
	msgConfigurationLoaded     = "configuration loaded successfully"
	msgFailedLoadConfiguration = "failed to load configuration"
	msgEnvFileMissing          = "env file not found, reading process environment only"

	errFailedLoadConfiguration = "failed to load configuration"
	errStatEnvFile             = "failed to stat env file"

	attrService = "service"
	attrPath    = "path"
)

// Load читает конфигурацию типа T. Если envPath указывает на существующий файл,
// значения из него дополняются переменными окружения; иначе читается только окружение.
func Load[T any](ctx context.Context, serviceName, envPath string) (*T, error) {
	log := logger.Log(ctx)

	log.Info(ctx, msgLoadingConfiguration,
		zap.String(attrService, serviceName),
		zap.String(attrPath, envPath))

	var cfg T

	useFile := false
	if envPath != "" {
		_, err := os.Stat(envPath)
		switch {
		case err == nil:
			useFile = true
		case errors.Is(err, fs.ErrNotExist):
			log.Debug(ctx, msgEnvFileMissing, zap.String(attrPath, envPath))
		default:
			return nil, fmt.Errorf("%s: %w", errStatEnvFile, err)
		}
	}

	var err error
	if useFile {
		err = cleanenv.ReadConfig(envPath, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		log.Error(ctx, msgFailedLoadConfiguration,
			zap.String(attrService, serviceName),
			zap.Error(err))
		return nil, fmt.Errorf("%s: %w", errFailedLoadConfiguration, err)
	}

	log.Info(ctx, msgConfigurationLoaded, zap.String(attrService, serviceName))

	return &cfg, nil
}
