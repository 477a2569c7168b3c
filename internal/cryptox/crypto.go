// Package cryptox holds the password-based envelope used to protect the
// vault record: argon2id key derivation, AES-256-GCM sealing and the
// password verifiers.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"

	"github.com/dmitrijs2005/polvault/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	KeySize   = 32
	SaltSize  = 16
	NonceSize = 12

	// DefaultBcryptCost is used for the stored password verifier.
	DefaultBcryptCost = 12
)

// ErrDecrypt is returned for any failure to open a sealed blob: wrong key,
// truncated input or tampered ciphertext. Callers cannot tell these apart.
var ErrDecrypt = errors.New("decryption failed")

// MakeVerifier returns a sha256 digest of a derived key. It is safe to store
// and compare against later derivations.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// DeriveKey stretches password with argon2id into a 32-byte AES key.
// Same inputs always give the same key.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-GCM under key. The random nonce is
// prepended to the returned ciphertext.
func Seal(plaintext, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(NonceSize)

	out := make([]byte, 0, NonceSize+len(plaintext)+aesgcm.Overhead())
	out = append(out, nonce...)
	return aesgcm.Seal(out, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func Open(ciphertext, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, ErrDecrypt
	}
	if len(ciphertext) < NonceSize+aesgcm.Overhead() {
		return nil, ErrDecrypt
	}

	plaintext, err := aesgcm.Open(nil, ciphertext[:NonceSize], ciphertext[NonceSize:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// SealWithPassword derives a key from password and a fresh random salt and
// seals plaintext with it. Output layout: salt || nonce || ciphertext.
func SealWithPassword(plaintext, password []byte) ([]byte, error) {
	salt := common.GenerateRandByteArray(SaltSize)

	key := DeriveKey(password, salt)
	defer common.WipeByteArray(key)

	sealed, err := Seal(plaintext, key)
	if err != nil {
		return nil, err
	}

	return append(salt, sealed...), nil
}

// OpenWithPassword reverses SealWithPassword.
func OpenWithPassword(blob, password []byte) ([]byte, error) {
	if len(blob) < SaltSize {
		return nil, ErrDecrypt
	}

	key := DeriveKey(password, blob[:SaltSize])
	defer common.WipeByteArray(key)

	return Open(blob[SaltSize:], key)
}

// HashPassword produces a bcrypt verifier for password.
func HashPassword(password string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// VerifyPassword reports whether password matches a HashPassword result.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
