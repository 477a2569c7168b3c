package models

import "time"

// DefaultIdleTimeout is the idle budget applied when setup supplies no policy.
const DefaultIdleTimeout = 15 * time.Minute

// SecurityPolicy is stored with the record and mirrored by the client guard.
type SecurityPolicy struct {
	AutoLock        bool  `json:"autoLock"`
	RememberSession bool  `json:"rememberSession"`
	IdleTimeoutMs   int64 `json:"idleTimeoutMs"`
}

func DefaultSecurityPolicy() SecurityPolicy {
	return SecurityPolicy{
		AutoLock:        true,
		RememberSession: false,
		IdleTimeoutMs:   DefaultIdleTimeout.Milliseconds(),
	}
}

func (p SecurityPolicy) IdleTimeout() time.Duration {
	return time.Duration(p.IdleTimeoutMs) * time.Millisecond
}

// UserRecord is the single vault record. It only ever exists on disk in
// sealed form; the plaintext is held in memory for the duration of one
// operation.
type UserRecord struct {
	ID                     string         `json:"id"`
	PasswordVerifier       string         `json:"passwordVerifier"`
	EncryptedSecretPayload string         `json:"encryptedSecretPayload,omitempty"`
	PublicIdentifier       string         `json:"publicIdentifier,omitempty"`
	CreatedAt              time.Time      `json:"createdAt"`
	LastLoginAt            *time.Time     `json:"lastLoginAt,omitempty"`
	SecurityPolicy         SecurityPolicy `json:"securityPolicy"`
}

func (u *UserRecord) HasSecret() bool {
	return u.EncryptedSecretPayload != ""
}

// UserSummary is the part of the record that may leave the server.
type UserSummary struct {
	ID               string         `json:"id"`
	PublicIdentifier string         `json:"publicIdentifier,omitempty"`
	HasSecret        bool           `json:"hasSecret"`
	SecurityPolicy   SecurityPolicy `json:"securityPolicy"`
	CreatedAt        time.Time      `json:"createdAt"`
	LastLoginAt      *time.Time     `json:"lastLoginAt,omitempty"`
}

func (u *UserRecord) Summary() UserSummary {
	return UserSummary{
		ID:               u.ID,
		PublicIdentifier: u.PublicIdentifier,
		HasSecret:        u.HasSecret(),
		SecurityPolicy:   u.SecurityPolicy,
		CreatedAt:        u.CreatedAt,
		LastLoginAt:      u.LastLoginAt,
	}
}
