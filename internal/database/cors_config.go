package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"authlink/internal/models"
)

// The CORS policy lives in a single keyed row so the server and the
// configure CLI read and write the same record.
const corsConfigKey = "default"

const (
	selectCorsConfigSQL = `SELECT config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at
		FROM cors_config WHERE config_key = $1`

	upsertCorsConfigSQL = `INSERT INTO cors_config (config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (config_key) DO UPDATE SET
			allowed_origins = EXCLUDED.allowed_origins,
			allow_credentials = EXCLUDED.allow_credentials,
			max_age = EXCLUDED.max_age,
			updated_at = EXCLUDED.updated_at`
)

// CorsConfigRepository reads and writes the stored CORS policy.
type CorsConfigRepository struct {
	db *DB
}

// NewCorsConfigRepository creates a new CORS config repository.
func NewCorsConfigRepository(db *DB) *CorsConfigRepository {
	return &CorsConfigRepository{db: db}
}

// Get returns the stored CORS policy, or nil when none has been saved yet.
func (r *CorsConfigRepository) Get(ctx context.Context) (*models.CorsConfig, error) {
	cfg := &models.CorsConfig{}
	err := r.db.QueryRowContext(ctx, selectCorsConfigSQL, corsConfigKey).Scan(
		&cfg.ConfigKey,
		&cfg.AllowedOrigins,
		&cfg.AllowCredentials,
		&cfg.MaxAge,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cors config: %w", err)
	}
	return cfg, nil
}

// Set upserts the stored CORS policy. AllowedOrigins is comma-separated.
func (r *CorsConfigRepository) Set(ctx context.Context, cfg *models.CorsConfig) error {
	origins := strings.TrimSpace(cfg.AllowedOrigins)
	if origins == "" {
		return fmt.Errorf("allowed_origins cannot be empty")
	}
	now := time.Now()
	_, err := r.db.ExecContext(ctx, upsertCorsConfigSQL,
		corsConfigKey, origins, cfg.AllowCredentials, cfg.MaxAge, now, now)
	if err != nil {
		return fmt.Errorf("set cors config: %w", err)
	}
	return nil
}
