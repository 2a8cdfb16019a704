package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// DatabaseService is the health service name that tracks backing store
// reachability. The overall service ("") stays SERVING while the store is
// down because reads and writes fall back to local state.
const DatabaseService = "sortgate.database"

// HealthServer implements grpc.health.v1.Health.
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	backend Backend
}

// Check reports SERVING for the overall service and the database check result for
// DatabaseService.
func (h *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	switch req.GetService() {
	case "":
		return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
	case DatabaseService:
		st := grpc_health_v1.HealthCheckResponse_SERVING
		if err := h.backend.Probe(ctx); err != nil {
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		return &grpc_health_v1.HealthCheckResponse{Status: st}, nil
	default:
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}
}

// NewGRPCServer creates a gRPC server with standard interceptors, registers
// the health service and reflection, and returns the server ready to serve.
func (s *Server) NewGRPCServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor(s.logger),
		),
	)

	grpc_health_v1.RegisterHealthServer(srv, &HealthServer{backend: s.backend})
	reflection.Register(srv)

	return srv
}
