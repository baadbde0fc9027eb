package purchase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Settings holds the buying-wide configuration each lifecycle operation
// reads once at its start.
type Settings struct {
	MaintainSameRate      bool
	AutoFetchPaymentTerms bool
}

// SettingsSource supplies buying settings.
type SettingsSource interface {
	BuyingSettings(ctx context.Context) (Settings, error)
}

// PGSettings reads the single buying_settings row. A missing row means
// defaults.
type PGSettings struct {
	pool *pgxpool.Pool
}

// NewPGSettings constructs PGSettings.
func NewPGSettings(pool *pgxpool.Pool) *PGSettings {
	return &PGSettings{pool: pool}
}

// BuyingSettings fetches current settings.
func (s *PGSettings) BuyingSettings(ctx context.Context) (Settings, error) {
	var cfg Settings
	err := s.pool.QueryRow(ctx, `SELECT maintain_same_rate, auto_fetch_payment_terms
FROM buying_settings LIMIT 1`).Scan(&cfg.MaintainSameRate, &cfg.AutoFetchPaymentTerms)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, nil
		}
		return Settings{}, err
	}
	return cfg, nil
}

var _ SettingsSource = (*PGSettings)(nil)
