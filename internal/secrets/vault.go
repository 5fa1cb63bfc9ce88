package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

//nolint:gochecknoglobals // sentinel error
var ErrInvalidKey = errors.New("secrets: invalid encryption key")

//nolint:gochecknoglobals // sentinel error
var ErrNotSealed = errors.New("secrets: value is not sealed")

// sealedPrefix marks setting values written by Vault.Seal.
const sealedPrefix = "sealed:v1:"

// Vault seals setting values at rest using AES-256-GCM.
type Vault struct {
	aead cipher.AEAD
}

// NewVault creates a Vault with the given 32-byte encryption key.
func NewVault(key []byte) (*Vault, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets.NewVault: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets.NewVault: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// NewVaultFromHex decodes a 64-character hex key and creates a Vault.
func NewVaultFromHex(hexKey string) (*Vault, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("secrets.NewVaultFromHex: %w", ErrInvalidKey)
	}
	return NewVault(key)
}

// IsSealed reports whether value was produced by Seal.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}

// Seal encrypts plaintext. The output format is
// "sealed:v1:" + base64(nonce || ciphertext); the setting name is bound as
// additional data so a sealed value cannot be moved to another setting.
func (v *Vault) Seal(name, plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secrets.Seal: generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), []byte(name))

	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal for the same setting name.
func (v *Vault) Open(name, value string) (string, error) {
	if !IsSealed(value) {
		return "", ErrNotSealed
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("secrets.Open: base64 decode: %w", err)
	}

	nonceSize := v.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("secrets.Open: ciphertext too short")
	}

	plaintext, err := v.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(name))
	if err != nil {
		return "", fmt.Errorf("secrets.Open: %w", err)
	}

	return string(plaintext), nil
}
