package secrets

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

// SettingSigningSecret is the settings key holding the audit signing secret.
const SettingSigningSecret = "audit_signing_secret"

// DefaultInsecureSecret is used only when the settings store is unreachable
// and no fallback secret is configured. Signatures made with it can be
// forged by anyone who has read this source.
const DefaultInsecureSecret = "trail-insecure-default-signing-secret"

// secretBytes is the entropy of a generated secret (256 bits).
const secretBytes = 32

//nolint:gochecknoglobals // sentinel error
var ErrSettingNotFound = errors.New("secrets: setting not found")

// SettingRepository reads and writes persistent settings.
type SettingRepository interface {
	Get(ctx context.Context, key string) (string, error)
	// PutIfAbsent stores value unless key already exists and returns the
	// value that is persisted after the call, which is the existing one when
	// another writer got there first.
	PutIfAbsent(ctx context.Context, key, value string) (string, error)
}

// Source tells where a resolved key came from.
type Source string

const (
	SourceStored      Source = "stored"
	SourceGenerated   Source = "generated"
	SourceEnvironment Source = "environment"
	SourceDefault     Source = "default"
)

// Key is a resolved signing secret.
type Key struct {
	secret []byte
	source Source
}

// NewKey wraps a secret, e.g. for tests and offline verification.
func NewKey(secret string, source Source) Key {
	return Key{secret: []byte(secret), source: source}
}

func (k Key) Bytes() []byte  { return k.secret }
func (k Key) Source() Source { return k.source }
func (k Key) IsZero() bool   { return len(k.secret) == 0 }

// Insecure reports whether k is the built-in default.
func (k Key) Insecure() bool { return k.source == SourceDefault }

// Fingerprint identifies the key in logs without revealing it.
func (k Key) Fingerprint() string {
	sum := sha256.Sum256(k.secret)
	return hex.EncodeToString(sum[:4])
}

// Provider resolves the signing secret once and caches it for its lifetime.
// The key is never rotated in-process.
type Provider struct {
	repo     SettingRepository
	vault    *Vault
	fallback string
	random   io.Reader

	mu  sync.Mutex
	key *Key
}

type Option func(*Provider)

// WithVault seals newly generated secrets and opens sealed stored ones.
func WithVault(v *Vault) Option {
	return func(p *Provider) { p.vault = v }
}

// WithFallbackSecret sets the secret used when the settings store fails.
func WithFallbackSecret(secret string) Option {
	return func(p *Provider) { p.fallback = secret }
}

// WithRandom replaces the entropy source used to generate secrets.
func WithRandom(r io.Reader) Option {
	return func(p *Provider) { p.random = r }
}

func NewProvider(repo SettingRepository, opts ...Option) *Provider {
	p := &Provider{repo: repo, random: rand.Reader}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Key returns the signing key, resolving it on first use: stored setting,
// else a freshly generated secret persisted with insert-if-absent, else the
// fallback secret, else DefaultInsecureSecret.
func (p *Provider) Key(ctx context.Context) (Key, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != nil {
		return *p.key, nil
	}

	k, err := p.resolve(ctx)
	if err != nil {
		return Key{}, fmt.Errorf("secrets.Provider.Key: %w", err)
	}

	log.Info().
		Str("source", string(k.source)).
		Str("fingerprint", k.Fingerprint()).
		Msg("secrets: audit signing key resolved")

	p.key = &k
	return k, nil
}

func (p *Provider) resolve(ctx context.Context) (Key, error) {
	stored, err := p.repo.Get(ctx, SettingSigningSecret)
	if err == nil {
		secret, openErr := p.open(stored)
		if openErr != nil {
			return Key{}, openErr
		}
		return Key{secret: []byte(secret), source: SourceStored}, nil
	}
	if !errors.Is(err, ErrSettingNotFound) {
		return p.degrade(err), nil
	}

	generated, err := generateSecret(p.random)
	if err != nil {
		return Key{}, err
	}

	toStore := generated
	if p.vault != nil {
		toStore, err = p.vault.Seal(SettingSigningSecret, generated)
		if err != nil {
			return Key{}, err
		}
	}

	persisted, err := p.repo.PutIfAbsent(ctx, SettingSigningSecret, toStore)
	if err != nil {
		return p.degrade(err), nil
	}

	secret, err := p.open(persisted)
	if err != nil {
		return Key{}, err
	}

	if secret != generated {
		log.Info().Msg("secrets: another instance persisted the signing secret first; adopting it")
		return Key{secret: []byte(secret), source: SourceStored}, nil
	}

	return Key{secret: []byte(secret), source: SourceGenerated}, nil
}

func (p *Provider) open(value string) (string, error) {
	if value == "" {
		return "", errors.New("stored signing secret is empty")
	}

	if !IsSealed(value) {
		if p.vault != nil {
			log.Warn().Msg("secrets: stored signing secret is not sealed; consider re-sealing it")
		}
		return value, nil
	}

	if p.vault == nil {
		return "", errors.New("stored signing secret is sealed but no settings key is configured")
	}

	return p.vault.Open(SettingSigningSecret, value)
}

func (p *Provider) degrade(cause error) Key {
	if p.fallback != "" {
		log.Warn().Err(cause).Msg("secrets: settings store unavailable; signing with the configured fallback secret")
		return Key{secret: []byte(p.fallback), source: SourceEnvironment}
	}

	log.Error().Err(cause).Msg("secrets: settings store unavailable and no fallback secret configured; " +
		"signing with the built-in INSECURE default key. Audit signatures are forgeable. Never run like this in production")
	return Key{secret: []byte(DefaultInsecureSecret), source: SourceDefault}
}

func generateSecret(r io.Reader) (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
