package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"formdesk/pkg/logger"
)

// ServiceName имя сервиса в grpc.health.v1. Пустое имя отвечает за сервер целиком.
const ServiceName = "formdesk"

// Константы для сообщений logger.
const (
	LogHealthChanged = "health status changed"
	LogPingFailed    = "record store ping failed"
)

// Pinger проверяет доступность зависимости.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter периодически проверяет хранилище и обновляет статус здоровья.
type HealthReporter struct {
	health   *health.Server
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	last     healthpb.HealthCheckResponse_ServingStatus
}

// NewHealthReporter создает новый HealthReporter.
func NewHealthReporter(healthSrv *health.Server, pinger Pinger, interval time.Duration) *HealthReporter {
	timeout := interval / 2
	if timeout <= 0 {
		timeout = time.Second
	}
	return &HealthReporter{
		health:   healthSrv,
		pinger:   pinger,
		interval: interval,
		timeout:  timeout,
		last:     healthpb.HealthCheckResponse_UNKNOWN,
	}
}

// Check выполняет одну проверку и возвращает выставленный статус.
func (r *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := r.pinger.Ping(pingCtx); err != nil {
		logger.Log(ctx).Warn(ctx, LogPingFailed, zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	if status != r.last {
		logger.Log(ctx).Info(ctx, LogHealthChanged, zap.Stringer("status", status))
		r.last = status
	}

	r.health.SetServingStatus("", status)
	r.health.SetServingStatus(ServiceName, status)
	return status
}

// Run проверяет хранилище сразу и затем с периодом interval, пока ctx не отменен.
func (r *HealthReporter) Run(ctx context.Context) {
	r.Check(ctx)

	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Check(ctx)
		}
	}
}
