package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/pkg/cryptox"
	"github.com/skillbase/skillbase/pkg/idx"
	"github.com/skillbase/skillbase/pkg/slogx"
)

// defaultRoles are created on first start. The owner role's wildcard scope is
// what the super-admin gate checks; no email address is special-cased at
// runtime.
var defaultRoles = []domain.Role{
	{Name: domain.RoleStudent, Scopes: []string{"profile:read", "profile:write", "courses:read"}},
	{Name: domain.RoleInstructor, Scopes: []string{"profile:read", "profile:write", "courses:read", "courses:manage"}},
	{Name: domain.RoleAdmin, Scopes: []string{"profile:read", "profile:write", "courses:read", "courses:manage", "users:manage"}},
	{Name: domain.RoleOwner, Scopes: []string{domain.ScopeAll}},
}

type SeedService struct {
	Store store.Store
}

// OwnerConfig describes the platform owner account created at first start.
type OwnerConfig struct {
	Email    string
	Name     string
	Password string
}

// Run makes sure the default roles exist and, when configured, that the owner
// account does too. Safe to run on every start: existing rows are left alone.
func (s *SeedService) Run(ctx context.Context, owner OwnerConfig) error {
	l := slogx.FromContext(ctx)

	for _, def := range defaultRoles {
		_, err := s.Store.Roles().GetRoleByName(ctx, def.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		def.ID = idx.New().String()
		if err := s.Store.Roles().CreateRole(ctx, def); err != nil {
			// Concurrent starters can race on the insert; losing is fine.
			if errors.Is(err, store.ErrAlreadyExists) {
				continue
			}
			return err
		}
		l.Info("seeded role", slog.String("role", def.Name))
	}

	if owner.Email == "" {
		return nil
	}
	return s.seedOwner(ctx, owner)
}

func (s *SeedService) seedOwner(ctx context.Context, owner OwnerConfig) error {
	l := slogx.FromContext(ctx)

	if _, err := s.Store.Users().GetUserByEmail(ctx, owner.Email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if owner.Password == "" {
		return errors.New("owner account configured without a password")
	}

	hash, err := cryptox.HashPassword(owner.Password)
	if err != nil {
		return err
	}
	role, err := s.Store.Roles().GetRoleByName(ctx, domain.RoleOwner)
	if err != nil {
		return err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        owner.Email,
		FullName:     owner.Name,
		PasswordHash: hash,
		RoleID:       role.ID,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil
		}
		return err
	}

	l.Info("seeded owner account", slog.String("user_id", user.ID))
	return nil
}
