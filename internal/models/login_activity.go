package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginEvent describes how a handshake touched the user record
type LoginEvent string

const (
	LoginEventCreated LoginEvent = "created"
	LoginEventLogin   LoginEvent = "login"
)

// LoginActivity is one row of the append-only handshake log
type LoginActivity struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Provider   string     `json:"provider"`
	Event      LoginEvent `json:"event"`
	ClientIP   string     `json:"client_ip"`
	OccurredAt time.Time  `json:"occurred_at"`
	CreatedAt  time.Time  `json:"created_at"`
}
