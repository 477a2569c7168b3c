package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/polvault/internal/api"
	"github.com/dmitrijs2005/polvault/internal/logging"
	"github.com/dmitrijs2005/polvault/internal/server/auth"
	"github.com/dmitrijs2005/polvault/internal/server/models"
	"github.com/dmitrijs2005/polvault/internal/server/ratelimit"
	"github.com/dmitrijs2005/polvault/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// accountSvc is the part of services.AccountService the transport calls.
type accountSvc interface {
	Status(ctx context.Context) (*services.Status, error)
	Setup(ctx context.Context, in services.SetupInput) (*models.UserSummary, error)
	Login(ctx context.Context, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error
	Reset(ctx context.Context, confirmation string) error
	CreateBackup(ctx context.Context, password string) (string, error)
	RestoreBackup(ctx context.Context, handle, password string) (*models.UserSummary, error)
	StorageStats(ctx context.Context) (*models.StorageStats, error)
}

type tokenVerifier interface {
	VerifyAccess(token string) (*auth.Claims, error)
}

type GRPCServer struct {
	address  string
	accounts accountSvc
	verifier tokenVerifier
	limiter  *ratelimit.Limiter
	logger   logging.Logger
}

var _ api.VaultServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, accounts accountSvc, verifier tokenVerifier, limiter *ratelimit.Limiter) (*GRPCServer, error) {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		accounts: accounts,
		verifier: verifier,
		limiter:  limiter,
	}, nil
}

func (s *GRPCServer) newServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.rateLimitInterceptor, s.accessTokenInterceptor))

	api.RegisterVaultServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv, hs
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv, hs := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
