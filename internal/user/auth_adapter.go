package user

import (
	"context"

	"github.com/alecgard/wayfare/internal/auth"
)

// AuthAdapter adapts user.Store to the auth.UserLookup interface.
type AuthAdapter struct {
	store *Store
}

// NewAuthAdapter creates a new AuthAdapter wrapping the given user store.
func NewAuthAdapter(store *Store) *AuthAdapter {
	return &AuthAdapter{store: store}
}

// Lookup resolves a verified token subject to the auth.User it identifies.
// Deactivated accounts do not authenticate.
func (a *AuthAdapter) Lookup(ctx context.Context, userID string) (*auth.User, error) {
	u, err := a.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrNotFound
	}
	return &auth.User{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
	}, nil
}
