package user

import (
	"context"
	"errors"

	"github.com/alecgard/wayfare/internal/trip"
)

// DirectoryAdapter adapts user.Store to the trip.Directory interface.
type DirectoryAdapter struct {
	store *Store
}

// NewDirectoryAdapter creates a new DirectoryAdapter wrapping the given store.
func NewDirectoryAdapter(store *Store) *DirectoryAdapter {
	return &DirectoryAdapter{store: store}
}

// Exists reports whether the user exists.
func (a *DirectoryAdapter) Exists(ctx context.Context, userID string) (bool, error) {
	return a.store.Exists(ctx, userID)
}

// PublicInfo returns the user's public identity snapshot, or nil when the
// user is unknown.
func (a *DirectoryAdapter) PublicInfo(ctx context.Context, userID string) (*trip.UserInfo, error) {
	info, err := a.store.GetPublicInfo(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trip.UserInfo{
		ID:          info.ID,
		Email:       info.Email,
		Username:    info.Username,
		DisplayName: info.DisplayName,
		AvatarURL:   info.AvatarURL,
	}, nil
}
