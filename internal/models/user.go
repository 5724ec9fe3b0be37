package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserStatus represents the lifecycle state of an account
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User represents a user in the system. Accounts created through an
// external identity provider carry a nil Password.
type User struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Avatar     *string    `json:"avatar,omitempty"`
	Provider   *string    `json:"provider,omitempty"`
	ProviderID *string    `json:"provider_id,omitempty"`
	Password   *string    `json:"-"`
	Verified   bool       `json:"verified"`
	Status     UserStatus `json:"status"`
	Contact    string     `json:"contact"`
	Location   string     `json:"location"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Linked reports whether an external provider identity is attached.
func (u *User) Linked() bool {
	return u.ProviderID != nil && strings.TrimSpace(*u.ProviderID) != ""
}
