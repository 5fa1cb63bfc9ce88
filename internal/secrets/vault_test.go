package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validKey(t *testing.T) []byte {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	return key
}

func TestNewVault_ValidKey(t *testing.T) {
	t.Parallel()

	v, err := NewVault(validKey(t))
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestNewVault_InvalidKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		keyLen int
	}{
		{name: "too short", keyLen: 16},
		{name: "too long", keyLen: 64},
		{name: "empty", keyLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := NewVault(make([]byte, tt.keyLen))
			assert.Nil(t, v)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestNewVaultFromHex(t *testing.T) {
	t.Parallel()

	v, err := NewVaultFromHex(hex.EncodeToString(validKey(t)))
	require.NoError(t, err)
	assert.NotNil(t, v)

	_, err = NewVaultFromHex("not-hex")
	require.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewVaultFromHex("abcd")
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	t.Parallel()

	v, err := NewVault(validKey(t))
	require.NoError(t, err)

	sealed, err := v.Seal(SettingSigningSecret, "deadbeef")
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.NotContains(t, sealed, "deadbeef")

	opened, err := v.Open(SettingSigningSecret, sealed)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", opened)
}

func TestSeal_DifferentCiphertexts(t *testing.T) {
	t.Parallel()

	v, err := NewVault(validKey(t))
	require.NoError(t, err)

	a, err := v.Seal("k", "same")
	require.NoError(t, err)
	b, err := v.Seal("k", "same")
	require.NoError(t, err)

	// Random nonces.
	assert.NotEqual(t, a, b)
}

func TestOpen_Rejects(t *testing.T) {
	t.Parallel()

	v, err := NewVault(validKey(t))
	require.NoError(t, err)

	sealed, err := v.Seal("name-a", "secret")
	require.NoError(t, err)

	t.Run("other setting name", func(t *testing.T) {
		t.Parallel()

		_, openErr := v.Open("name-b", sealed)
		require.Error(t, openErr)
	})

	t.Run("plaintext", func(t *testing.T) {
		t.Parallel()

		_, openErr := v.Open("name-a", "plain")
		require.ErrorIs(t, openErr, ErrNotSealed)
	})

	t.Run("tampered", func(t *testing.T) {
		t.Parallel()

		data, decErr := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
		require.NoError(t, decErr)
		data[len(data)-1] ^= 0xFF

		_, openErr := v.Open("name-a", sealedPrefix+base64.StdEncoding.EncodeToString(data))
		require.Error(t, openErr)
	})

	t.Run("too short", func(t *testing.T) {
		t.Parallel()

		_, openErr := v.Open("name-a", sealedPrefix+base64.StdEncoding.EncodeToString([]byte("short")))
		require.Error(t, openErr)
	})

	t.Run("other key", func(t *testing.T) {
		t.Parallel()

		other, newErr := NewVault(validKey(t))
		require.NoError(t, newErr)

		_, openErr := other.Open("name-a", sealed)
		require.Error(t, openErr)
	})
}
