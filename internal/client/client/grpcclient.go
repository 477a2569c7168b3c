package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/polvault/internal/api"
	"github.com/dmitrijs2005/polvault/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// knownErrors are the server sentinels recognised by their status message.
var knownErrors = []error{
	common.ErrNotConfigured,
	common.ErrAlreadyConfigured,
	common.ErrWeakPassword,
	common.ErrInvalidCredentials,
	common.ErrInvalidSession,
	common.ErrInvalidToken,
	common.ErrTokenExpired,
	common.ErrResetNotConfirmed,
	common.ErrInvalidSecretPayload,
	common.ErrBackupNotFound,
	common.ErrStorageFailure,
}

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      api.VaultClient
	tokens      TokenStore
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if method == api.MethodRefresh {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withAccessToken(ctx, s.tokens.AccessToken()), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}

	refreshToken := s.tokens.RefreshToken()
	if refreshToken == "" {
		return err
	}

	resp, rerr := s.client.Refresh(ctx, &api.RefreshRequest{RefreshToken: refreshToken})
	if rerr != nil {
		return rerr
	}
	s.tokens.SetAccessToken(resp.AccessToken)

	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

// NewVaultClient dials endpointURL lazily. Every call is bounded by timeout
// when it is positive.
func NewVaultClient(endpointURL string, timeout time.Duration, tokens TokenStore) (*GRPCClient, error) {
	return newVaultClient(endpointURL, timeout, tokens)
}

func newVaultClient(endpointURL string, timeout time.Duration, tokens TokenStore, extra ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout, tokens: tokens}
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, extra...)
	conn, err := grpc.NewClient(c.endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = api.NewVaultClient(conn)
	return c, nil
}

func (s *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Ping(ctx, &api.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Status(ctx context.Context) (*api.StatusResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Status(ctx, &api.StatusRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Setup(ctx context.Context, password, secretPayload string, policy *api.SecurityPolicy) (*api.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Setup(ctx, &api.SetupRequest{Password: password, SecretPayload: secretPayload, SecurityPolicy: policy})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.User, nil
}

func (s *GRPCClient) Login(ctx context.Context, password string) (*api.LoginResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Login(ctx, &api.LoginRequest{Password: password})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Refresh(ctx, &api.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.AccessToken, nil
}

func (s *GRPCClient) Logout(ctx context.Context, refreshToken string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.Logout(ctx, &api.LogoutRequest{RefreshToken: refreshToken})
	return s.mapError(err)
}

func (s *GRPCClient) ChangePassword(ctx context.Context, current, next string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.ChangePassword(ctx, &api.ChangePasswordRequest{CurrentPassword: current, NewPassword: next})
	return s.mapError(err)
}

func (s *GRPCClient) Reset(ctx context.Context, confirmation string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.Reset(ctx, &api.ResetRequest{Confirmation: confirmation})
	return s.mapError(err)
}

func (s *GRPCClient) CreateBackup(ctx context.Context, password string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.CreateBackup(ctx, &api.BackupRequest{Password: password})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.Handle, nil
}

func (s *GRPCClient) RestoreBackup(ctx context.Context, handle, password string) (*api.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.RestoreBackup(ctx, &api.RestoreRequest{Handle: handle, Password: password})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.User, nil
}

func (s *GRPCClient) StorageStats(ctx context.Context) (*api.StatsResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.StorageStats(ctx, &api.StatsRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	for _, known := range knownErrors {
		if st.Message() == known.Error() {
			return known
		}
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", common.ErrTooManyRequests, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", errors.New(st.Message()))
	}
}
