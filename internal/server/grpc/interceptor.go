package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/polvault/internal/api"
	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/netx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const UserIDKey ctxKey = "userID"

// methods that need a valid access token
var protectedMethods = map[string]bool{
	api.MethodChangePassword: true,
	api.MethodReset:          true,
	api.MethodCreateBackup:   true,
	api.MethodRestoreBackup:  true,
	api.MethodStorageStats:   true,
}

// methods counted against the per-client limit
var limitedMethods = map[string]bool{
	api.MethodSetup:          true,
	api.MethodLogin:          true,
	api.MethodChangePassword: true,
	api.MethodReset:          true,
	api.MethodCreateBackup:   true,
	api.MethodRestoreBackup:  true,
}

// bearerFromMetadata returns the first access_token value, or "".
func bearerFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 {
		return v[0]
	}
	return ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	token := bearerFromMetadata(ctx)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.verifier.VerifyAccess(token)
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		// the client refreshes on this exact message
		return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	case err != nil:
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	return handler(context.WithValue(ctx, UserIDKey, claims.UserID), req)
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.limiter != nil && limitedMethods[info.FullMethod] {
		key := netx.PeerHost(ctx)
		if ok, retry := s.limiter.Allow(key); !ok {
			s.logger.Warn(ctx, "rate limit exceeded", "client", key, "method", info.FullMethod)
			return nil, status.Error(codes.ResourceExhausted,
				fmt.Sprintf("%s, retry after %s", common.ErrTooManyRequests, retry.Round(time.Second)))
		}
	}
	return handler(ctx, req)
}
