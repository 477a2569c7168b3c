// Package services contains application services for the vault CLI.
// AuthService ties the server API to the local guard: login and unlock,
// logout, and the account operations that end the current session.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/polvault/internal/api"
	"github.com/dmitrijs2005/polvault/internal/client/client"
	"github.com/dmitrijs2005/polvault/internal/client/guard"
	"github.com/dmitrijs2005/polvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/logging"
)

const keySecurityPolicy = "security_policy"

var (
	ErrNoRememberedSession = errors.New("no remembered session")
	// ErrUnlockRequired is returned by Resume after the session was locked
	// in this process; only the vault password may reopen it.
	ErrUnlockRequired = errors.New("vault is locked, password required")
)

// AuthService defines authentication operations for the CLI. All methods
// honor context cancellation.
type AuthService interface {
	Ping(ctx context.Context) error
	Status(ctx context.Context) (*api.StatusResponse, error)
	Setup(ctx context.Context, password, secretPayload string, policy *api.SecurityPolicy) (*api.User, error)
	Login(ctx context.Context, password string) (*api.User, error)
	Unlock(ctx context.Context, password string) error
	Resume(ctx context.Context) error
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context, current, next string) error
	Reset(ctx context.Context, confirmation string) error
	CreateBackup(ctx context.Context, password string) (string, error)
	RestoreBackup(ctx context.Context, handle, password string) (*api.User, error)
	StorageStats(ctx context.Context) (*api.StatsResponse, error)
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	guard  *guard.Guard
	meta   metadata.Repository
	logger logging.Logger
}

func NewAuthService(c client.Client, g *guard.Guard, meta metadata.Repository, l logging.Logger) AuthService {
	return &authService{client: c, guard: g, meta: meta, logger: l.With("module", "auth")}
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Status(ctx context.Context) (*api.StatusResponse, error) {
	return a.client.Status(ctx)
}

func (a *authService) Setup(ctx context.Context, password, secretPayload string, policy *api.SecurityPolicy) (*api.User, error) {
	if len(password) < common.MinPasswordLength {
		return nil, common.ErrWeakPassword
	}
	return a.client.Setup(ctx, password, secretPayload, policy)
}

// Login authenticates against the server, starts the local session and
// refreshes the local gate so a remembered session can later be unlocked
// with the same password.
func (a *authService) Login(ctx context.Context, password string) (*api.User, error) {
	resp, err := a.client.Login(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	policy := resp.User.SecurityPolicy
	a.guard.BeginSession(guard.Session{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, policy)

	if err := a.saveLocalState(ctx, []byte(password), policy); err != nil {
		a.logger.Warn(ctx, "failed to save local session state", "error", err)
	}
	return &resp.User, nil
}

func (a *authService) saveLocalState(ctx context.Context, password []byte, policy api.SecurityPolicy) error {
	if err := a.guard.SetupGate(ctx, password); err != nil {
		return err
	}
	data, err := json.Marshal(policy)
	if err != nil {
		return err
	}
	if err := a.meta.Set(ctx, keySecurityPolicy, data); err != nil {
		return err
	}
	return a.guard.Remember(ctx)
}

// Unlock resumes a remembered session: the password is checked against the
// local gate and the remembered refresh token is exchanged for a new access
// token. ErrNoRememberedSession means a full Login is required.
func (a *authService) Unlock(ctx context.Context, password string) error {
	ok, err := a.guard.VerifyGate(ctx, []byte(password))
	if errors.Is(err, guard.ErrNoGate) {
		return ErrNoRememberedSession
	}
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInvalidCredentials
	}

	return a.resumeRemembered(ctx)
}

// Resume reopens a remembered session without a password, as a fresh CLI
// process does on startup. Once this process has locked the session
// (idle or manual) it returns ErrUnlockRequired and Unlock must be used.
func (a *authService) Resume(ctx context.Context) error {
	if a.guard.State() == guard.StateUnlocked {
		return nil
	}
	if a.guard.LastLockReason() != "" {
		return ErrUnlockRequired
	}
	return a.resumeRemembered(ctx)
}

func (a *authService) resumeRemembered(ctx context.Context) error {
	refreshToken, found, err := a.guard.RestoreRemembered(ctx)
	if err != nil {
		return err
	}
	if !found {
		return ErrNoRememberedSession
	}

	access, err := a.client.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrInvalidSession) {
			_ = a.guard.Logout(ctx)
			return ErrNoRememberedSession
		}
		return err
	}

	a.guard.BeginSession(guard.Session{AccessToken: access, RefreshToken: refreshToken}, a.loadPolicy(ctx))
	return nil
}

func (a *authService) loadPolicy(ctx context.Context) api.SecurityPolicy {
	policy := api.SecurityPolicy{AutoLock: true, RememberSession: true, IdleTimeoutMs: 900000}
	data, err := a.meta.Get(ctx, keySecurityPolicy)
	if err != nil {
		return policy
	}
	if err := json.Unmarshal(data, &policy); err != nil {
		a.logger.Warn(ctx, "stored security policy is unreadable", "error", err)
	}
	return policy
}

// Logout revokes the refresh token on the server and drops the local
// session. The local state is cleared even if the server cannot be reached.
func (a *authService) Logout(ctx context.Context) error {
	refreshToken := a.guard.RefreshToken()
	if refreshToken == "" {
		refreshToken, _, _ = a.guard.RestoreRemembered(ctx)
	}

	var serverErr error
	if refreshToken != "" {
		serverErr = a.client.Logout(ctx, refreshToken)
		if serverErr != nil {
			a.logger.Warn(ctx, "server logout failed", "error", serverErr)
		}
	}

	if err := a.guard.Logout(ctx); err != nil {
		return err
	}
	return serverErr
}

// ChangePassword ends every session on the server, so the local one is
// dropped too and the gate is re-keyed to the new password.
func (a *authService) ChangePassword(ctx context.Context, current, next string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if len(next) < common.MinPasswordLength {
		return common.ErrWeakPassword
	}
	a.guard.RecordActivity()

	if err := a.client.ChangePassword(ctx, current, next); err != nil {
		return err
	}

	if err := a.guard.Logout(ctx); err != nil {
		return err
	}
	return a.guard.SetupGate(ctx, []byte(next))
}

func (a *authService) Reset(ctx context.Context, confirmation string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if confirmation != common.ResetConfirmation {
		return common.ErrResetNotConfirmed
	}
	a.guard.RecordActivity()

	if err := a.client.Reset(ctx, confirmation); err != nil {
		return err
	}
	return a.guard.Reset(ctx)
}

func (a *authService) CreateBackup(ctx context.Context, password string) (string, error) {
	if err := a.requireSession(); err != nil {
		return "", err
	}
	a.guard.RecordActivity()
	return a.client.CreateBackup(ctx, password)
}

// RestoreBackup replaces the server record. The server drops all sessions
// afterwards, so the local one goes as well.
func (a *authService) RestoreBackup(ctx context.Context, handle, password string) (*api.User, error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	a.guard.RecordActivity()

	user, err := a.client.RestoreBackup(ctx, handle, password)
	if err != nil {
		return nil, err
	}
	if err := a.guard.Logout(ctx); err != nil {
		return nil, err
	}
	if err := a.guard.SetupGate(ctx, []byte(password)); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *authService) StorageStats(ctx context.Context) (*api.StatsResponse, error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	a.guard.RecordActivity()
	return a.client.StorageStats(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	a.guard.Stop()
	return a.client.Close()
}

func (a *authService) requireSession() error {
	if a.guard.State() != guard.StateUnlocked {
		return client.ErrNotLoggedIn
	}
	return nil
}
