package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/polvault/internal/api"
	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/server/services"
	"github.com/dmitrijs2005/polvault/internal/server/shared"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors onto gRPC codes. Unknown errors never leak
// their text.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrNotConfigured):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrAlreadyConfigured):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrWeakPassword),
		errors.Is(err, common.ErrInvalidSecretPayload),
		errors.Is(err, common.ErrResetNotConfirmed):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidSession),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrBackupNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrStorageFailure):
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}
}

func (s *GRPCServer) Status(ctx context.Context, req *api.StatusRequest) (*api.StatusResponse, error) {
	st, err := s.accounts.Status(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.StatusResponse{Configured: st.Configured, RequiresSetup: st.RequiresSetup}, nil
}

func (s *GRPCServer) Setup(ctx context.Context, req *api.SetupRequest) (*api.SetupResponse, error) {

	s.logger.Info(ctx, "Setup request")

	user, err := s.accounts.Setup(ctx, services.SetupInput{
		Password:      req.Password,
		SecretPayload: req.SecretPayload,
		Policy:        shared.FromAPIPolicy(req.SecurityPolicy),
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return &api.SetupResponse{User: shared.ToAPIUser(*user)}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {

	res, err := s.accounts.Login(ctx, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return &api.LoginResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         shared.ToAPIUser(res.User),
	}, nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *api.RefreshRequest) (*api.RefreshResponse, error) {
	if req.RefreshToken == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh token is required")
	}

	access, err := s.accounts.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.RefreshResponse{AccessToken: access}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *api.LogoutRequest) (*api.LogoutResponse, error) {
	if req.RefreshToken == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh token is required")
	}

	if err := s.accounts.Logout(ctx, req.RefreshToken); err != nil {
		return nil, toStatus(err)
	}
	return &api.LogoutResponse{}, nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *api.ChangePasswordRequest) (*api.ChangePasswordResponse, error) {
	if err := s.accounts.ChangePassword(ctx, req.CurrentPassword, req.NewPassword); err != nil {
		return nil, toStatus(err)
	}
	return &api.ChangePasswordResponse{}, nil
}

func (s *GRPCServer) Reset(ctx context.Context, req *api.ResetRequest) (*api.ResetResponse, error) {
	if err := s.accounts.Reset(ctx, req.Confirmation); err != nil {
		return nil, toStatus(err)
	}
	return &api.ResetResponse{}, nil
}

func (s *GRPCServer) CreateBackup(ctx context.Context, req *api.BackupRequest) (*api.BackupResponse, error) {
	handle, err := s.accounts.CreateBackup(ctx, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.BackupResponse{Handle: handle}, nil
}

func (s *GRPCServer) RestoreBackup(ctx context.Context, req *api.RestoreRequest) (*api.RestoreResponse, error) {
	user, err := s.accounts.RestoreBackup(ctx, req.Handle, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.RestoreResponse{User: shared.ToAPIUser(*user)}, nil
}

func (s *GRPCServer) StorageStats(ctx context.Context, req *api.StatsRequest) (*api.StatsResponse, error) {
	stats, err := s.accounts.StorageStats(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return shared.ToAPIStats(stats), nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *api.PingRequest) (*api.PingResponse, error) {

	return &api.PingResponse{Status: "OK"}, nil

}
