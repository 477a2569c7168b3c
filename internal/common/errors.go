// Package common defines shared constants and sentinel errors used across
// client and server layers of polvault. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// storage errors
	ErrorNotFound     = errors.New("not found")
	ErrStorageFailure = errors.New("storage failure")
	ErrCorruptData    = errors.New("corrupt data")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// account lifecycle
	ErrNotConfigured        = errors.New("vault is not configured")
	ErrAlreadyConfigured    = errors.New("vault is already configured")
	ErrWeakPassword         = errors.New("password must be at least 8 characters long")
	ErrInvalidCredentials   = errors.New("invalid password or corrupt data")
	ErrInvalidSession       = errors.New("invalid or expired session")
	ErrResetNotConfirmed    = errors.New("reset confirmation does not match")
	ErrInvalidSecretPayload = errors.New("invalid secret payload format")
	ErrBackupNotFound       = errors.New("backup not found")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// rate limiting
	ErrTooManyRequests = errors.New("too many requests")
)
