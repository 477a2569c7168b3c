package api

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestCodec_PlainStruct(t *testing.T) {
	c := Codec{}
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(&LoginRequest{Password: "password123"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"password":"password123"}`, string(data))

	var got LoginRequest
	require.NoError(t, c.Unmarshal(data, &got))
	assert.Equal(t, "password123", got.Password)

	require.NoError(t, c.Unmarshal(nil, &got), "empty body is allowed")
}

func TestCodec_ProtoMessage(t *testing.T) {
	c := Codec{}

	data, err := c.Marshal(&healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING})
	require.NoError(t, err)
	assert.Contains(t, string(data), "SERVING")

	got := &healthpb.HealthCheckResponse{}
	require.NoError(t, c.Unmarshal(data, got))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, got.GetStatus())
}

type echoServer struct {
	VaultServer
}

func (echoServer) Ping(ctx context.Context, _ *PingRequest) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

func (echoServer) Login(ctx context.Context, in *LoginRequest) (*LoginResponse, error) {
	if in.Password != "password123" {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	return &LoginResponse{AccessToken: "a", RefreshToken: "r", User: User{ID: "u-1"}}, nil
}

func dialBuf(t *testing.T, srv VaultServer, opts ...grpc.ServerOption) VaultClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(opts...)
	RegisterVaultServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewVaultClient(conn)
}

func TestVaultService_RoundTrip(t *testing.T) {
	var seen []string
	intercept := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = append(seen, info.FullMethod)
		return handler(ctx, req)
	}
	c := dialBuf(t, echoServer{}, grpc.UnaryInterceptor(intercept))
	ctx := context.Background()

	pong, err := c.Ping(ctx, &PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "OK", pong.Status)

	res, err := c.Login(ctx, &LoginRequest{Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", res.User.ID)
	assert.Equal(t, "r", res.RefreshToken)

	_, err = c.Login(ctx, &LoginRequest{Password: "nope"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	assert.Equal(t, []string{MethodPing, MethodLogin, MethodLogin}, seen)
}
