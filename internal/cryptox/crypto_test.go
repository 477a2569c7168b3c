package cryptox

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}

	// snapshot
	expectedHex := "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39"
	if hex.EncodeToString(key1) != expectedHex {
		t.Errorf("expected %s, got %s", expectedHex, hex.EncodeToString(key1))
	}
}

func TestDeriveKey_DifferentInputs(t *testing.T) {
	password := []byte("secret-password")

	key1 := DeriveKey(password, []byte("salt-1"))
	key2 := DeriveKey(password, []byte("salt-2"))

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestMakeVerifier_IsSHA256(t *testing.T) {
	v := MakeVerifier([]byte("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", hex.EncodeToString(v))
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveKey([]byte("pw"), []byte("salt"))
	plaintext := []byte(`{"id":"1"}`)

	sealed, err := Seal(plaintext, key)
	require.NoError(t, err)
	require.Len(t, sealed, NonceSize+len(plaintext)+16)

	got, err := Open(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestSeal_FreshNonceEachTime(t *testing.T) {
	key := DeriveKey([]byte("pw"), []byte("salt"))

	a, err := Seal([]byte("same"), key)
	require.NoError(t, err)
	b, err := Seal([]byte("same"), key)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestOpen_Failures(t *testing.T) {
	key := DeriveKey([]byte("pw"), []byte("salt"))
	other := DeriveKey([]byte("pw2"), []byte("salt"))

	sealed, err := Seal([]byte("payload"), key)
	require.NoError(t, err)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xff

	tests := []struct {
		name string
		data []byte
		key  []byte
	}{
		{"wrong key", sealed, other},
		{"tampered", tampered, key},
		{"truncated", sealed[:5], key},
		{"empty", nil, key},
		{"bad key size", sealed, []byte("short")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Open(tc.data, tc.key)
			require.ErrorIs(t, err, ErrDecrypt)
		})
	}
}

func TestSealWithPassword_RoundTripAndWrongPassword(t *testing.T) {
	blob, err := SealWithPassword([]byte("hello"), []byte("correct horse"))
	require.NoError(t, err)

	got, err := OpenWithPassword(blob, []byte("correct horse"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	_, err = OpenWithPassword(blob, []byte("wrong horse"))
	require.ErrorIs(t, err, ErrDecrypt)

	_, err = OpenWithPassword([]byte("tiny"), []byte("correct horse"))
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestSealWithPassword_SaltDiffers(t *testing.T) {
	a, err := SealWithPassword([]byte("x"), []byte("pw"))
	require.NoError(t, err)
	b, err := SealWithPassword([]byte("x"), []byte("pw"))
	require.NoError(t, err)

	assert.NotEqual(t, a[:SaltSize], b[:SaltSize])
}

func TestHashPassword_Verify(t *testing.T) {
	h, err := HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, VerifyPassword(h, "password123"))
	assert.False(t, VerifyPassword(h, "password124"))
	assert.False(t, VerifyPassword("not-a-hash", "password123"))
}
