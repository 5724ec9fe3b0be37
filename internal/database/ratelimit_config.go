package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"authlink/internal/models"
)

// Like the CORS policy, the rate limit lives in a single keyed row.
const ratelimitConfigKey = "default"

const (
	selectRatelimitConfigSQL = `SELECT config_key, rate, created_at, updated_at
		FROM ratelimit_config WHERE config_key = $1`

	upsertRatelimitConfigSQL = `INSERT INTO ratelimit_config (config_key, rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (config_key) DO UPDATE SET
			rate = EXCLUDED.rate,
			updated_at = EXCLUDED.updated_at`
)

// RatelimitConfigRepository reads and writes the stored rate limit.
type RatelimitConfigRepository struct {
	db *DB
}

// NewRatelimitConfigRepository creates a new ratelimit config repository.
func NewRatelimitConfigRepository(db *DB) *RatelimitConfigRepository {
	return &RatelimitConfigRepository{db: db}
}

// Get returns the stored rate limit, or nil when none has been saved yet.
func (r *RatelimitConfigRepository) Get(ctx context.Context) (*models.RatelimitConfig, error) {
	cfg := &models.RatelimitConfig{}
	err := r.db.QueryRowContext(ctx, selectRatelimitConfigSQL, ratelimitConfigKey).Scan(
		&cfg.ConfigKey,
		&cfg.Rate,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ratelimit config: %w", err)
	}
	return cfg, nil
}

// Set upserts the stored rate limit in ulule/limiter notation, e.g. "5-S" or "100-M".
func (r *RatelimitConfigRepository) Set(ctx context.Context, cfg *models.RatelimitConfig) error {
	rate := strings.TrimSpace(cfg.Rate)
	if rate == "" {
		return fmt.Errorf("rate cannot be empty")
	}
	now := time.Now()
	_, err := r.db.ExecContext(ctx, upsertRatelimitConfigSQL, ratelimitConfigKey, rate, now, now)
	if err != nil {
		return fmt.Errorf("set ratelimit config: %w", err)
	}
	return nil
}
