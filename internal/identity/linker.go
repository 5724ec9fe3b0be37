package identity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"authlink/internal/database"
	"authlink/internal/models"
)

// ErrNoEmail is returned when a provider profile carries no usable email
// address. Nothing is created or mutated in that case.
var ErrNoEmail = errors.New("no email provided by provider")

// Linker resolves an external profile into a local user record: it creates
// the record on first contact, backfills the provider identity on a
// pre-existing account, and leaves already-linked accounts untouched.
type Linker struct {
	users    database.UserRepositoryInterface
	provider string
}

// NewLinker creates a linker bound to one provider tag
func NewLinker(users database.UserRepositoryInterface, provider string) *Linker {
	return &Linker{users: users, provider: provider}
}

// Provider returns the tag this linker stamps onto records
func (l *Linker) Provider() string {
	return l.provider
}

// Link finds or creates the user for a completed handshake. The boolean
// reports whether a new record was created. Store errors are returned to
// the caller unmodified; each handshake performs at most one write.
func (l *Linker) Link(ctx context.Context, profile *Profile) (*models.User, bool, error) {
	email, ok := profile.ResolveEmail()
	if !ok {
		return nil, false, ErrNoEmail
	}

	user, err := l.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			created, createErr := l.create(ctx, email, profile)
			if createErr != nil {
				return nil, false, createErr
			}
			return created, true, nil
		}
		return nil, false, err
	}

	if user.Linked() {
		return user, false, nil
	}

	provider := l.provider
	providerID := profile.ID
	user.Provider = &provider
	user.ProviderID = &providerID
	if user.Avatar == nil {
		user.Avatar = profile.ResolveAvatar()
	}
	if err := l.users.Update(ctx, user); err != nil {
		return nil, false, err
	}

	return user, false, nil
}

func (l *Linker) create(ctx context.Context, email string, profile *Profile) (*models.User, error) {
	firstName, lastName := profile.SplitName()
	provider := l.provider
	providerID := profile.ID

	user := &models.User{
		ID:         uuid.New(),
		Email:      email,
		Name:       profile.ResolveName(),
		FirstName:  firstName,
		LastName:   lastName,
		Avatar:     profile.ResolveAvatar(),
		Provider:   &provider,
		ProviderID: &providerID,
		Password:   nil,
		Verified:   true,
		Status:     models.UserStatusActive,
		Contact:    "",
		Location:   profile.Location,
	}

	if err := l.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
