package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "polvault.v1.VaultService"

// Full method names, as seen by interceptors.
const (
	MethodStatus         = "/" + ServiceName + "/Status"
	MethodSetup          = "/" + ServiceName + "/Setup"
	MethodLogin          = "/" + ServiceName + "/Login"
	MethodRefresh        = "/" + ServiceName + "/Refresh"
	MethodLogout         = "/" + ServiceName + "/Logout"
	MethodChangePassword = "/" + ServiceName + "/ChangePassword"
	MethodReset          = "/" + ServiceName + "/Reset"
	MethodCreateBackup   = "/" + ServiceName + "/CreateBackup"
	MethodRestoreBackup  = "/" + ServiceName + "/RestoreBackup"
	MethodStorageStats   = "/" + ServiceName + "/StorageStats"
	MethodPing           = "/" + ServiceName + "/Ping"
)

// VaultServer is implemented by the server side transport.
type VaultServer interface {
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	Setup(context.Context, *SetupRequest) (*SetupResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*ChangePasswordResponse, error)
	Reset(context.Context, *ResetRequest) (*ResetResponse, error)
	CreateBackup(context.Context, *BackupRequest) (*BackupResponse, error)
	RestoreBackup(context.Context, *RestoreRequest) (*RestoreResponse, error)
	StorageStats(context.Context, *StatsRequest) (*StatsResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

func unary[Req, Resp any](fullMethod string, call func(VaultServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(VaultServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(VaultServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var VaultServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Status", Handler: unary(MethodStatus, VaultServer.Status)},
		{MethodName: "Setup", Handler: unary(MethodSetup, VaultServer.Setup)},
		{MethodName: "Login", Handler: unary(MethodLogin, VaultServer.Login)},
		{MethodName: "Refresh", Handler: unary(MethodRefresh, VaultServer.Refresh)},
		{MethodName: "Logout", Handler: unary(MethodLogout, VaultServer.Logout)},
		{MethodName: "ChangePassword", Handler: unary(MethodChangePassword, VaultServer.ChangePassword)},
		{MethodName: "Reset", Handler: unary(MethodReset, VaultServer.Reset)},
		{MethodName: "CreateBackup", Handler: unary(MethodCreateBackup, VaultServer.CreateBackup)},
		{MethodName: "RestoreBackup", Handler: unary(MethodRestoreBackup, VaultServer.RestoreBackup)},
		{MethodName: "StorageStats", Handler: unary(MethodStorageStats, VaultServer.StorageStats)},
		{MethodName: "Ping", Handler: unary(MethodPing, VaultServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "polvault/v1/vault",
}

func RegisterVaultServer(s grpc.ServiceRegistrar, srv VaultServer) {
	s.RegisterService(&VaultServiceDesc, srv)
}

// VaultClient is the client side of VaultService.
type VaultClient interface {
	Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error)
	Setup(ctx context.Context, in *SetupRequest, opts ...grpc.CallOption) (*SetupResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*RefreshResponse, error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error)
	ChangePassword(ctx context.Context, in *ChangePasswordRequest, opts ...grpc.CallOption) (*ChangePasswordResponse, error)
	Reset(ctx context.Context, in *ResetRequest, opts ...grpc.CallOption) (*ResetResponse, error)
	CreateBackup(ctx context.Context, in *BackupRequest, opts ...grpc.CallOption) (*BackupResponse, error)
	RestoreBackup(ctx context.Context, in *RestoreRequest, opts ...grpc.CallOption) (*RestoreResponse, error)
	StorageStats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*StatsResponse, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
}

type vaultClient struct {
	cc grpc.ClientConnInterface
}

func NewVaultClient(cc grpc.ClientConnInterface) VaultClient {
	return &vaultClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *vaultClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodStatus, in, opts)
}

func (c *vaultClient) Setup(ctx context.Context, in *SetupRequest, opts ...grpc.CallOption) (*SetupResponse, error) {
	return invoke[SetupResponse](ctx, c.cc, MethodSetup, in, opts)
}

func (c *vaultClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *vaultClient) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*RefreshResponse, error) {
	return invoke[RefreshResponse](ctx, c.cc, MethodRefresh, in, opts)
}

func (c *vaultClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, MethodLogout, in, opts)
}

func (c *vaultClient) ChangePassword(ctx context.Context, in *ChangePasswordRequest, opts ...grpc.CallOption) (*ChangePasswordResponse, error) {
	return invoke[ChangePasswordResponse](ctx, c.cc, MethodChangePassword, in, opts)
}

func (c *vaultClient) Reset(ctx context.Context, in *ResetRequest, opts ...grpc.CallOption) (*ResetResponse, error) {
	return invoke[ResetResponse](ctx, c.cc, MethodReset, in, opts)
}

func (c *vaultClient) CreateBackup(ctx context.Context, in *BackupRequest, opts ...grpc.CallOption) (*BackupResponse, error) {
	return invoke[BackupResponse](ctx, c.cc, MethodCreateBackup, in, opts)
}

func (c *vaultClient) RestoreBackup(ctx context.Context, in *RestoreRequest, opts ...grpc.CallOption) (*RestoreResponse, error) {
	return invoke[RestoreResponse](ctx, c.cc, MethodRestoreBackup, in, opts)
}

func (c *vaultClient) StorageStats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*StatsResponse, error) {
	return invoke[StatsResponse](ctx, c.cc, MethodStorageStats, in, opts)
}

func (c *vaultClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}
