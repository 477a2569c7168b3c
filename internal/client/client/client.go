package client

import (
	"context"

	"github.com/dmitrijs2005/polvault/internal/api"
)

// Client is the vault API as the CLI sees it. Calls that need an access
// token take it from the TokenStore the client was built with.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Status(ctx context.Context) (*api.StatusResponse, error)
	Setup(ctx context.Context, password, secretPayload string, policy *api.SecurityPolicy) (*api.User, error)
	Login(ctx context.Context, password string) (*api.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, current, next string) error
	Reset(ctx context.Context, confirmation string) error
	CreateBackup(ctx context.Context, password string) (string, error)
	RestoreBackup(ctx context.Context, handle, password string) (*api.User, error)
	StorageStats(ctx context.Context) (*api.StatsResponse, error)
}

// TokenStore holds the current session tokens. guard.Guard implements it.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetAccessToken(token string)
}
