// Package listener serves the HTTP API and a gRPC health endpoint on one
// port. Connections are split by cmux: HTTP/2 requests with a gRPC content
// type go to the gRPC server, everything else to net/http.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// MailService is the health service name that tracks mail transport
// verification. The empty name reports overall process health.
const MailService = "mail"

// Health reports serving status over gRPC.
type Health struct {
	srv *health.Server
}

// NewGRPCServer builds a gRPC server with the health service and reflection
// registered. Overall status starts SERVING; MailService starts UNKNOWN
// until SetMailStatus is called.
func NewGRPCServer() (*grpc.Server, *Health) {
	gs := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus(MailService, healthpb.HealthCheckResponse_UNKNOWN)
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)
	return gs, &Health{srv: hs}
}

// SetMailStatus records the result of a transport verification.
func (h *Health) SetMailStatus(err error) {
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.srv.SetServingStatus(MailService, status)
}

// Shutdown marks every service NOT_SERVING so health watchers see the drain.
func (h *Health) Shutdown() {
	h.srv.Shutdown()
}

// Serve multiplexes lis between httpSrv and grpcSrv and blocks until ctx is
// cancelled or a server fails. On cancellation in-flight HTTP requests get
// shutdownTimeout to finish and gRPC streams are drained.
func Serve(ctx context.Context, lis net.Listener, httpSrv *http.Server, grpcSrv *grpc.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	m := cmux.New(lis)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.Any())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := grpcSrv.Serve(grpcL); err != nil && !closedErr(err) {
			return fmt.Errorf("grpc: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := httpSrv.Serve(httpL); err != nil && !closedErr(err) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := m.Serve(); err != nil && gctx.Err() == nil && !closedErr(err) {
			return fmt.Errorf("mux: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("listener: shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpSrv.Shutdown(shutdownCtx)

		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			// Health Watch streams never end on their own.
			grpcSrv.Stop()
		}

		_ = lis.Close()
		if err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	logger.Info("listener: serving", "addr", lis.Addr().String())
	return g.Wait()
}

func closedErr(err error) bool {
	return errors.Is(err, http.ErrServerClosed) ||
		errors.Is(err, cmux.ErrListenerClosed) ||
		errors.Is(err, grpc.ErrServerStopped) ||
		errors.Is(err, net.ErrClosed)
}
