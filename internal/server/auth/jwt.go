// Package auth issues and verifies the vault's session tokens. Access and
// refresh tokens are HS256 JWTs signed with distinct secrets and told apart
// by the "typ" claim.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims carries the registered claims plus the vault specific ones.
type Claims struct {
	jwt.RegisteredClaims
	UserID           string    `json:"userId"`
	PublicIdentifier string    `json:"publicIdentifier,omitempty"`
	Type             TokenType `json:"typ"`
}

// GenerateToken signs claims with secretKey and sets issued/expiry times
// relative to now.
func GenerateToken(claims Claims, secretKey []byte, now time.Time, validityDuration time.Duration) (string, error) {
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(validityDuration))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken checks signature and expiry and returns the claims. Expired
// tokens give common.ErrTokenExpired, anything else common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte, now func() time.Time) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// TokenSet is the view of the revocation set the authority needs.
type TokenSet interface {
	Contains(token string) bool
	Remove(token string) bool
}

// Authority holds the signing material for the process lifetime.
type Authority struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewAuthority(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *Authority {
	return &Authority{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (a *Authority) WithClock(now func() time.Time) *Authority {
	a.now = now
	return a
}

func (a *Authority) IssueAccess(userID, publicIdentifier string) (string, error) {
	return GenerateToken(Claims{
		UserID:           userID,
		PublicIdentifier: publicIdentifier,
		Type:             TokenAccess,
	}, a.accessSecret, a.now(), a.accessTTL)
}

// IssueRefresh mints a refresh token. Every token gets a random id so two
// tokens issued in the same second are still distinct set members. The
// public identifier rides along so a refresh can mint a complete access
// token without opening the sealed record.
func (a *Authority) IssueRefresh(userID, publicIdentifier string) (string, error) {
	return GenerateToken(Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: uuid.NewString()},
		UserID:           userID,
		PublicIdentifier: publicIdentifier,
		Type:             TokenRefresh,
	}, a.refreshSecret, a.now(), a.refreshTTL)
}

// VerifyAccess is stateless: signature, expiry and type only.
func (a *Authority) VerifyAccess(token string) (*Claims, error) {
	claims, err := ParseToken(token, a.accessSecret, a.now)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenAccess {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh requires set membership in addition to a valid signature,
// expiry and type. Membership is checked first.
func (a *Authority) VerifyRefresh(token string, set TokenSet) (*Claims, error) {
	if !set.Contains(token) {
		return nil, common.ErrInvalidSession
	}

	claims, err := ParseToken(token, a.refreshSecret, a.now)
	if err != nil {
		return nil, common.ErrInvalidSession
	}
	if claims.Type != TokenRefresh {
		return nil, common.ErrInvalidSession
	}
	return claims, nil
}

// Revoke drops token from set. Unknown tokens are ignored.
func (a *Authority) Revoke(token string, set TokenSet) {
	set.Remove(token)
}
