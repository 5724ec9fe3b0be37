package database

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id uuid PRIMARY KEY,
    email text NOT NULL,
    name text NOT NULL DEFAULT '',
    first_name text NOT NULL DEFAULT '',
    last_name text NOT NULL DEFAULT '',
    avatar text,
    provider text,
    provider_id text,
    password text,
    verified boolean NOT NULL DEFAULT false,
    status text NOT NULL DEFAULT 'active',
    contact text NOT NULL DEFAULT '',
    location text NOT NULL DEFAULT '',
    last_seen_at timestamptz,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS users_email_unique
ON users (email);

CREATE INDEX IF NOT EXISTS users_provider_identity_idx
ON users (provider, provider_id);

CREATE TABLE IF NOT EXISTS login_activity (
    id uuid PRIMARY KEY,
    user_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    provider text NOT NULL,
    event text NOT NULL,
    client_ip text NOT NULL DEFAULT '',
    occurred_at timestamptz NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS login_activity_user_idx
ON login_activity (user_id, occurred_at DESC);

CREATE TABLE IF NOT EXISTS cors_config (
    config_key text PRIMARY KEY,
    allowed_origins text NOT NULL,
    allow_credentials boolean NOT NULL DEFAULT false,
    max_age integer NOT NULL DEFAULT 300,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ratelimit_config (
    config_key text PRIMARY KEY,
    rate text NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);
`

// RunMigrations applies the schema. Every statement is idempotent, so the
// migration is safe to run against an already-provisioned database.
func RunMigrations(ctx context.Context, db *DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
