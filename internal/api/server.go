// Package api hosts the norne HTTP API and a gRPC health service on two
// listeners with a shared lifecycle.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"norne/internal/app"
	"norne/internal/config"
	"norne/internal/httpapi"
)

// ServiceName is the service reported by the gRPC health server.
const ServiceName = "norne.Backtester"

// Server is the main API server that hosts the HTTP and gRPC endpoints.
type Server struct {
	cfg      config.Server
	httpAddr string
	grpcAddr string
	log      *slog.Logger

	http   *http.Server
	grpc   *grpc.Server
	health *health.Server
}

// NewServer creates a Server for a, listening on the addresses in a's
// server configuration.
func NewServer(a *app.App, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	cfg := a.Config().Server

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		cfg:      cfg,
		httpAddr: net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		grpcAddr: net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.GRPCPort)),
		log:      log.With("component", "api"),
		http: &http.Server{
			Handler:           httpapi.NewServer(a, log).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpc:   gs,
		health: hs,
	}
}

// HTTPAddr returns the HTTP listen address.
func (s *Server) HTTPAddr() string { return s.httpAddr }

// GRPCAddr returns the gRPC listen address.
func (s *Server) GRPCAddr() string { return s.grpcAddr }

// ListenAndServe opens both listeners and serves until ctx is cancelled,
// Shutdown is called, or either server fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	hl, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpAddr, err)
	}
	gl, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		hl.Close()
		return fmt.Errorf("listening on %s: %w", s.grpcAddr, err)
	}
	return s.Serve(ctx, hl, gl)
}

// Serve is ListenAndServe on existing listeners. When one server stops the
// other is shut down too.
func (s *Server) Serve(ctx context.Context, httpLn, grpcLn net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		s.log.Info("http listening", "addr", httpLn.Addr().String())
		if err := s.http.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		s.log.Info("grpc listening", "addr", grpcLn.Addr().String())
		if err := s.grpc.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Shutdown marks the services as not serving, then stops both servers,
// waiting for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	err := s.http.Shutdown(ctx)
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
	return err
}
