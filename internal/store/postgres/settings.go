package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gosuda/trail/internal/secrets"
)

// SettingRepo implements secrets.SettingRepository over system_settings.
type SettingRepo struct {
	db querier
}

func NewSettingRepo(db querier) *SettingRepo {
	return &SettingRepo{db: db}
}

func (r *SettingRepo) Get(ctx context.Context, key string) (string, error) {
	var value string

	err := r.db.QueryRow(ctx,
		`SELECT setting_value FROM system_settings WHERE setting_key = $1`, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("settingRepo.Get: %w", secrets.ErrSettingNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("settingRepo.Get: %w", storageErr(err))
	}

	return value, nil
}

// PutIfAbsent inserts the setting or, when another writer stored it first,
// leaves it untouched. The no-op update makes RETURNING yield the existing
// row on conflict.
func (r *SettingRepo) PutIfAbsent(ctx context.Context, key, value string) (string, error) {
	var stored string

	err := r.db.QueryRow(ctx,
		`INSERT INTO system_settings (setting_key, setting_value)
		 VALUES ($1, $2)
		 ON CONFLICT (setting_key) DO UPDATE SET setting_key = EXCLUDED.setting_key
		 RETURNING setting_value`,
		key, value,
	).Scan(&stored)
	if err != nil {
		return "", fmt.Errorf("settingRepo.PutIfAbsent: %w", storageErr(err))
	}

	return stored, nil
}
