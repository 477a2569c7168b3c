// Package api defines the messages exchanged between the vault server and
// its clients, and the gRPC service description that carries them.
package api

import "time"

type SecurityPolicy struct {
	AutoLock        bool  `json:"autoLock"`
	RememberSession bool  `json:"rememberSession"`
	IdleTimeoutMs   int64 `json:"idleTimeoutMs"`
}

// User is the public view of the vault record.
type User struct {
	ID               string         `json:"id"`
	PublicIdentifier string         `json:"publicIdentifier,omitempty"`
	HasSecret        bool           `json:"hasSecret"`
	SecurityPolicy   SecurityPolicy `json:"securityPolicy"`
	CreatedAt        time.Time      `json:"createdAt"`
	LastLoginAt      *time.Time     `json:"lastLoginAt,omitempty"`
}

type Backup struct {
	Handle    string    `json:"handle"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

type StatusRequest struct{}

type StatusResponse struct {
	Configured    bool `json:"configured"`
	RequiresSetup bool `json:"requiresSetup"`
}

type SetupRequest struct {
	Password       string          `json:"password"`
	SecretPayload  string          `json:"secretPayload,omitempty"`
	SecurityPolicy *SecurityPolicy `json:"securityPolicy,omitempty"`
}

type SetupResponse struct {
	User User `json:"user"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutResponse struct{}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ChangePasswordResponse struct{}

type ResetRequest struct {
	Confirmation string `json:"confirmReset"`
}

type ResetResponse struct{}

type BackupRequest struct {
	Password string `json:"password"`
}

type BackupResponse struct {
	Handle string `json:"backupFile"`
}

type RestoreRequest struct {
	Handle   string `json:"backupFile"`
	Password string `json:"password"`
}

type RestoreResponse struct {
	User User `json:"user"`
}

type StatsRequest struct{}

type StatsResponse struct {
	Configured      bool       `json:"configured"`
	Backend         string     `json:"backend"`
	RecordUpdatedAt *time.Time `json:"recordUpdatedAt,omitempty"`
	ActiveSessions  int        `json:"activeSessions"`
	Backups         []Backup   `json:"backups"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
