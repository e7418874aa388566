package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowmart/storefront/internal/domain/settings"
)

const getSettingSQL = `SELECT value FROM settings WHERE name = $1`

var _ settings.Provider = (*SettingsRepository)(nil)

// SettingsRepository implements settings.Provider backed by PostgreSQL.
// Every call hits the database: credentials rotated by an administrator
// must take effect on the next invocation, so nothing is cached here.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a SettingsRepository that uses the given pool.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Payment returns the credentials for one gateway, stored under
// "payment.<gateway>".
func (r *SettingsRepository) Payment(ctx context.Context, gateway string) (*settings.Payment, error) {
	var cfg settings.Payment
	if err := r.get(ctx, "payment."+gateway, &cfg); err != nil {
		return nil, err
	}
	cfg.Gateway = gateway
	return &cfg, nil
}

// Email returns the SMTP relay configuration.
func (r *SettingsRepository) Email(ctx context.Context) (*settings.Email, error) {
	var cfg settings.Email
	if err := r.get(ctx, "email", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Store returns the storefront display and pricing configuration.
func (r *SettingsRepository) Store(ctx context.Context) (*settings.Store, error) {
	var cfg settings.Store
	if err := r.get(ctx, "store", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *SettingsRepository) get(ctx context.Context, name string, out any) error {
	var value []byte
	err := r.pool.QueryRow(ctx, getSettingSQL, name).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settings.ErrNotConfigured
		}
		return errors.Wrapf(err, "reading setting %q", name)
	}

	if err := json.Unmarshal(value, out); err != nil {
		return errors.Wrapf(err, "decoding setting %q", name)
	}
	return nil
}
