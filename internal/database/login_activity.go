package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"authlink/internal/models"
)

// LoginActivityRepository handles the append-only handshake log
type LoginActivityRepository struct {
	db *DB
}

// NewLoginActivityRepository creates a new login activity repository
func NewLoginActivityRepository(db *DB) *LoginActivityRepository {
	return &LoginActivityRepository{db: db}
}

// Record appends one activity row
func (r *LoginActivityRepository) Record(ctx context.Context, activity *models.LoginActivity) error {
	query := `
		INSERT INTO login_activity (id, user_id, provider, event, client_ip, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	if activity.OccurredAt.IsZero() {
		activity.OccurredAt = time.Now()
	}

	err := r.db.QueryRowContext(ctx, query,
		activity.ID,
		activity.UserID,
		activity.Provider,
		activity.Event,
		activity.ClientIP,
		activity.OccurredAt,
		time.Now(),
	).Scan(&activity.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record login activity: %w", err)
	}

	return nil
}

// ListByUser returns the newest activity rows for one user
func (r *LoginActivityRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.LoginActivity, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, user_id, provider, event, client_ip, occurred_at, created_at
		FROM login_activity
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list login activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var activities []*models.LoginActivity
	for rows.Next() {
		a := &models.LoginActivity{}
		err := rows.Scan(&a.ID, &a.UserID, &a.Provider, &a.Event, &a.ClientIP, &a.OccurredAt, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan login activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate login activity: %w", err)
	}

	return activities, nil
}
