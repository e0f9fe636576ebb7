// Package grpc содержит gRPC сервер проверки здоровья сервиса formdesk.
package grpc

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"formdesk/pkg/logger"
)

// Константы для сообщений logger.
const (
	LogServerStarted  = "gRPC server started"
	LogServerStopping = "stopping gRPC server"
	ErrServe          = "failed to serve gRPC"
	ErrListen         = "failed to listen"
	ErrCloseListener  = "failed to close listener"
)

// Server представляет gRPC сервер.
type Server struct {
	server   *grpc.Server
	health   *health.Server
	address  string
	listener net.Listener
}

// New создает новый экземпляр gRPC сервера с зарегистрированным сервисом grpc.health.v1.
func New(address string) *Server {
	srv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	reflection.Register(srv)

	return &Server{
		server:  srv,
		health:  healthSrv,
		address: address,
	}
}

// Health возвращает сервер статусов здоровья.
func (s *Server) Health() *health.Server {
	return s.health
}

// Addr возвращает фактический адрес после Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.address
	}
	return s.listener.Addr().String()
}

// Start запускает gRPC сервер.
func (s *Server) Start(ctx context.Context) error {
	log := logger.Log(ctx)

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrListen, err)
	}
	s.listener = listener

	log.Info(ctx, LogServerStarted, zap.String("address", listener.Addr().String()))

	go func() {
		if err := s.server.Serve(listener); err != nil {
			log.Error(ctx, ErrServe, zap.Error(err))
		}
	}()

	return nil
}

// Stop останавливает gRPC сервер. Если ctx истекает раньше, соединения закрываются принудительно.
func (s *Server) Stop(ctx context.Context) error {
	log := logger.Log(ctx)
	log.Info(ctx, LogServerStopping)

	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}
