// Package services holds the server side business logic: the sealed record
// store and the account lifecycle built on top of it.
package services

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/cryptox"
	"github.com/dmitrijs2005/polvault/internal/logging"
	"github.com/dmitrijs2005/polvault/internal/reporting"
	"github.com/dmitrijs2005/polvault/internal/server/auth"
	"github.com/dmitrijs2005/polvault/internal/server/models"
	"github.com/dmitrijs2005/polvault/internal/server/sessions"
	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// security event names written under the "event" log key
const (
	EventUserSetup       = "USER_SETUP"
	EventLoginSuccess    = "LOGIN_SUCCESS"
	EventLoginFailed     = "LOGIN_FAILED"
	EventLogout          = "LOGOUT"
	EventPasswordChanged = "PASSWORD_CHANGED"
	EventSystemReset     = "SYSTEM_RESET"
	EventBackupCreated   = "BACKUP_CREATED"
	EventBackupRestored  = "BACKUP_RESTORED"
)

var secretPayloadRe = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)

// Status tells a client which screen to show.
type Status struct {
	Configured    bool `json:"configured"`
	RequiresSetup bool `json:"requiresSetup"`
}

// SetupInput carries everything needed to create the record. A nil Policy
// means the default policy.
type SetupInput struct {
	Password      string
	SecretPayload string
	Policy        *models.SecurityPolicy
}

// LoginResult is what a successful login hands back.
type LoginResult struct {
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
	User         models.UserSummary `json:"user"`
}

// AccountService drives the vault through Unconfigured, LoggedOut and
// LoggedIn. Every mutating operation holds mu, so setup, password rotation
// and reset never interleave.
type AccountService struct {
	mu         sync.Mutex
	store      *SecretStore
	authority  *auth.Authority
	set        *sessions.RevocationSet
	bcryptCost int
	now        func() time.Time
	logger     logging.Logger
	report     func(error)
}

func NewAccountService(store *SecretStore, authority *auth.Authority, set *sessions.RevocationSet, bcryptCost int, logger logging.Logger) *AccountService {
	return &AccountService{
		store:      store,
		authority:  authority,
		set:        set,
		bcryptCost: bcryptCost,
		now:        time.Now,
		logger:     logger.With("module", "account"),
		report:     reporting.CaptureError,
	}
}

// Authority exposes the token authority to transports that need VerifyAccess.
func (s *AccountService) Authority() *auth.Authority {
	return s.authority
}

// translate passes lifecycle errors through and collapses everything else
// into ErrStorageFailure after logging the detail.
func (s *AccountService) translate(ctx context.Context, op string, err error) error {
	for _, known := range []error{
		common.ErrNotConfigured,
		common.ErrAlreadyConfigured,
		common.ErrWeakPassword,
		common.ErrInvalidCredentials,
		common.ErrInvalidSession,
		common.ErrResetNotConfirmed,
		common.ErrInvalidSecretPayload,
		common.ErrBackupNotFound,
	} {
		if errors.Is(err, known) {
			return known
		}
	}

	s.logger.Error(ctx, "operation failed", "op", op, "error", err)
	s.report(err)
	return common.ErrStorageFailure
}

func (s *AccountService) persistSessions(ctx context.Context) error {
	return s.store.PersistRevocationSet(ctx, s.set.Snapshot)
}

// LoadSessions fills the revocation set from storage. Called once at startup.
func (s *AccountService) LoadSessions(ctx context.Context) {
	tokens := s.store.LoadRevocationSet(ctx)
	s.set.Replace(tokens)
	s.logger.Info(ctx, "sessions loaded", "count", len(tokens))
}

// FlushSessions persists the revocation set as it is when the write starts.
func (s *AccountService) FlushSessions(ctx context.Context) error {
	return s.persistSessions(ctx)
}

func (s *AccountService) Status(ctx context.Context) (*Status, error) {
	ok, err := s.store.Exists(ctx)
	if err != nil {
		return nil, s.translate(ctx, "status", err)
	}
	return &Status{Configured: ok, RequiresSetup: !ok}, nil
}

func validatePassword(password string) error {
	if len(password) < common.MinPasswordLength {
		return common.ErrWeakPassword
	}
	return nil
}

// derivePublicIdentifier fingerprints the secret into an address-shaped
// string: 0x followed by the last 20 bytes of its keccak-256 digest.
func derivePublicIdentifier(payload string) string {
	raw, _ := hex.DecodeString(strings.TrimPrefix(payload, "0x"))
	h := sha3.NewLegacyKeccak256()
	h.Write(raw)
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[len(sum)-20:])
}

func sealPayload(payload, password string) (string, error) {
	sealed, err := cryptox.SealWithPassword([]byte(payload), []byte(password))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func openPayload(encoded, password string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}
	plain, err := cryptox.OpenWithPassword(sealed, []byte(password))
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}
	return plain, nil
}

func (s *AccountService) Setup(ctx context.Context, in SetupInput) (*models.UserSummary, error) {
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if in.SecretPayload != "" && !secretPayloadRe.MatchString(in.SecretPayload) {
		return nil, common.ErrInvalidSecretPayload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.store.Exists(ctx)
	if err != nil {
		return nil, s.translate(ctx, "setup", err)
	}
	if exists {
		return nil, common.ErrAlreadyConfigured
	}

	verifier, err := cryptox.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, s.translate(ctx, "setup", err)
	}

	policy := models.DefaultSecurityPolicy()
	if in.Policy != nil {
		policy = *in.Policy
		if policy.IdleTimeoutMs <= 0 {
			policy.IdleTimeoutMs = models.DefaultIdleTimeout.Milliseconds()
		}
	}

	rec := &models.UserRecord{
		ID:               uuid.NewString(),
		PasswordVerifier: verifier,
		CreatedAt:        s.now().UTC(),
		SecurityPolicy:   policy,
	}

	if in.SecretPayload != "" {
		rec.EncryptedSecretPayload, err = sealPayload(in.SecretPayload, in.Password)
		if err != nil {
			return nil, s.translate(ctx, "setup", err)
		}
		rec.PublicIdentifier = derivePublicIdentifier(in.SecretPayload)
	}

	if err := s.store.Write(ctx, rec, in.Password); err != nil {
		return nil, s.translate(ctx, "setup", err)
	}

	s.logger.Info(ctx, "vault configured", "event", EventUserSetup, "user_id", rec.ID, "has_secret", rec.HasSecret())

	summary := rec.Summary()
	return &summary, nil
}

// Login opens the record with password, issues a token pair and records
// the refresh token as live. Anything other than a missing record is
// reported as invalid credentials.
func (s *AccountService) Login(ctx context.Context, password string) (*LoginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Read(ctx, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.logger.Warn(ctx, "login failed", "event", EventLoginFailed, "reason", "decrypt")
		}
		return nil, s.translate(ctx, "login", err)
	}

	if !cryptox.VerifyPassword(rec.PasswordVerifier, password) {
		s.logger.Warn(ctx, "login failed", "event", EventLoginFailed, "reason", "verifier")
		return nil, common.ErrInvalidCredentials
	}

	access, err := s.authority.IssueAccess(rec.ID, rec.PublicIdentifier)
	if err != nil {
		return nil, s.translate(ctx, "login", err)
	}
	refresh, err := s.authority.IssueRefresh(rec.ID, rec.PublicIdentifier)
	if err != nil {
		return nil, s.translate(ctx, "login", err)
	}

	now := s.now().UTC()
	rec.LastLoginAt = &now
	if err := s.store.Write(ctx, rec, password); err != nil {
		return nil, s.translate(ctx, "login", err)
	}

	s.set.Add(refresh)
	if err := s.persistSessions(ctx); err != nil {
		s.set.Remove(refresh)
		return nil, s.translate(ctx, "login", err)
	}

	s.logger.Info(ctx, "login succeeded", "event", EventLoginSuccess, "user_id", rec.ID)

	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: rec.Summary()}, nil
}

// Refresh trades a live refresh token for a new access token. The refresh
// token itself is not rotated.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	// ChangePassword and Reset clear the set under mu; holding it here keeps
	// an access token from being minted off a token they just revoked.
	s.mu.Lock()
	defer s.mu.Unlock()

	claims, err := s.authority.VerifyRefresh(refreshToken, s.set)
	if err != nil {
		return "", common.ErrInvalidSession
	}

	exists, err := s.store.Exists(ctx)
	if err != nil {
		return "", s.translate(ctx, "refresh", err)
	}
	if !exists {
		return "", common.ErrInvalidSession
	}

	access, err := s.authority.IssueAccess(claims.UserID, claims.PublicIdentifier)
	if err != nil {
		return "", s.translate(ctx, "refresh", err)
	}
	return access, nil
}

// Logout revokes one refresh token. Unknown tokens are accepted silently.
func (s *AccountService) Logout(ctx context.Context, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if refreshToken == "" || !s.set.Contains(refreshToken) {
		return nil
	}

	s.authority.Revoke(refreshToken, s.set)
	if err := s.persistSessions(ctx); err != nil {
		return s.translate(ctx, "logout", err)
	}

	s.logger.Info(ctx, "logged out", "event", EventLogout)
	return nil
}

// ChangePassword re-seals the record and the secret under newPassword and
// revokes every outstanding refresh token.
func (s *AccountService) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Read(ctx, currentPassword)
	if err != nil {
		return s.translate(ctx, "change password", err)
	}
	if !cryptox.VerifyPassword(rec.PasswordVerifier, currentPassword) {
		return common.ErrInvalidCredentials
	}

	if rec.HasSecret() {
		plain, err := openPayload(rec.EncryptedSecretPayload, currentPassword)
		if err != nil {
			return s.translate(ctx, "change password", err)
		}
		rec.EncryptedSecretPayload, err = sealPayload(string(plain), newPassword)
		common.WipeByteArray(plain)
		if err != nil {
			return s.translate(ctx, "change password", err)
		}
	}

	rec.PasswordVerifier, err = cryptox.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return s.translate(ctx, "change password", err)
	}

	if err := s.store.Write(ctx, rec, newPassword); err != nil {
		return s.translate(ctx, "change password", err)
	}

	s.set.Clear()
	if err := s.persistSessions(ctx); err != nil {
		return s.translate(ctx, "change password", err)
	}

	s.logger.Info(ctx, "password changed", "event", EventPasswordChanged, "user_id", rec.ID)
	return nil
}

// Reset wipes the vault. confirmation must be exactly "RESET"; anything else
// leaves storage untouched.
func (s *AccountService) Reset(ctx context.Context, confirmation string) error {
	if confirmation != common.ResetConfirmation {
		return common.ErrResetNotConfirmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.set.Clear()
	if err := s.store.Clear(ctx); err != nil {
		return s.translate(ctx, "reset", err)
	}

	s.logger.Warn(ctx, "vault reset", "event", EventSystemReset)
	return nil
}

func (s *AccountService) CreateBackup(ctx context.Context, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, err := s.store.Backup(ctx, password)
	if err != nil {
		return "", s.translate(ctx, "backup", err)
	}

	s.logger.Info(ctx, "backup created", "event", EventBackupCreated, "handle", handle)
	return handle, nil
}

// RestoreBackup replaces the live record with the one from handle. password
// must be the password that was current when the backup was taken. All
// sessions are revoked.
func (s *AccountService) RestoreBackup(ctx context.Context, handle, password string) (*models.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.LoadBackup(ctx, handle)
	if err != nil {
		return nil, s.translate(ctx, "restore", err)
	}

	if !cryptox.VerifyPassword(rec.PasswordVerifier, password) {
		return nil, common.ErrInvalidCredentials
	}
	if rec.HasSecret() {
		plain, err := openPayload(rec.EncryptedSecretPayload, password)
		if err != nil {
			return nil, err
		}
		common.WipeByteArray(plain)
	}

	if err := s.store.Write(ctx, rec, password); err != nil {
		return nil, s.translate(ctx, "restore", err)
	}

	s.set.Clear()
	if err := s.persistSessions(ctx); err != nil {
		return nil, s.translate(ctx, "restore", err)
	}

	s.logger.Warn(ctx, "backup restored", "event", EventBackupRestored, "handle", handle, "user_id", rec.ID)

	summary := rec.Summary()
	return &summary, nil
}

func (s *AccountService) StorageStats(ctx context.Context) (*models.StorageStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, s.translate(ctx, "stats", err)
	}
	stats.ActiveSessions = s.set.Len()
	return stats, nil
}
