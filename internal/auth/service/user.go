package service

import (
	"context"
	"errors"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
)

type UserService struct {
	Store store.Store
}

// Profile assembles the public view of a user, including whether a second
// factor is active.
func (s *UserService) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return domain.Profile{}, err
	}

	mfaEnabled := false
	mfa, err := s.Store.MFASettings().GetMFASetting(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.Profile{}, err
	}
	if err == nil {
		mfaEnabled = mfa.Enabled()
	}

	return domain.Profile{
		ID:         user.ID,
		Email:      user.Email,
		FullName:   user.FullName,
		Role:       role.Name,
		MFAEnabled: mfaEnabled,
	}, nil
}

// UpdateFullName changes the display name.
func (s *UserService) UpdateFullName(ctx context.Context, userID, fullName string) error {
	return s.Store.Users().UpdateFullName(ctx, userID, fullName)
}
