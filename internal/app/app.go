// Package app assembles the store, signing key and services shared by the
// trail server and the trailctl tool.
package app

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/trail/internal/audit"
	"github.com/gosuda/trail/internal/config"
	"github.com/gosuda/trail/internal/secrets"
	"github.com/gosuda/trail/internal/store/postgres"
	redisstore "github.com/gosuda/trail/internal/store/redis"
	"github.com/gosuda/trail/internal/versioning"
)

// SetupLogging configures the global zerolog logger.
func SetupLogging(cfg config.LogConfig, out io.Writer) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}
}

// Runtime holds the connected backends and the services built on them.
type Runtime struct {
	Store    *postgres.Store
	PubSub   *redisstore.PubSub // nil unless the live feed is enabled
	Key      secrets.Key
	Audit    *audit.Service
	Versions *versioning.Service
}

// Options selects the optional parts of a Runtime.
type Options struct {
	// Migrate applies the embedded schema after connecting.
	Migrate bool
	// Feed connects Redis when cfg.Redis.Enabled is set and publishes
	// every logged event to it.
	Feed bool
}

// Open connects to PostgreSQL (and Redis when requested), resolves the audit
// signing key and builds the services. Call Close when done.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Store: store}

	if opts.Migrate {
		if err := store.Migrate(ctx); err != nil {
			rt.Close()
			return nil, err
		}
	}

	providerOpts := []secrets.Option{secrets.WithFallbackSecret(cfg.Audit.SigningSecret)}
	if cfg.Audit.SettingsKey != "" {
		vault, err := secrets.NewVaultFromHex(cfg.Audit.SettingsKey)
		if err != nil {
			rt.Close()
			return nil, err
		}
		providerOpts = append(providerOpts, secrets.WithVault(vault))
	}

	key, err := secrets.NewProvider(store.Settings(), providerOpts...).Key(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Key = key

	var auditOpts []audit.Option
	if opts.Feed && cfg.Redis.Enabled {
		pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.PubSub = pubsub
		auditOpts = append(auditOpts, audit.WithPublisher(pubsub))
	}

	rt.Audit = audit.NewService(store.Audit(), audit.NewSigner(key), auditOpts...)
	rt.Versions = versioning.NewService(store.Versions(), store, cfg.Audit.TrackedTables)
	return rt, nil
}

func (r *Runtime) Close() {
	if r.PubSub != nil {
		if err := r.PubSub.Close(); err != nil {
			log.Warn().Err(err).Msg("closing redis")
		}
	}
	r.Store.Close()
}
