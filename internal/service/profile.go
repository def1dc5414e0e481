package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/yamar8/lovetree-backend/internal/model"
	"github.com/yamar8/lovetree-backend/internal/store"
	"github.com/yamar8/lovetree-backend/pkg/security"
	"github.com/yamar8/lovetree-backend/pkg/validators"
)

// ProfileManager serves the operations an authenticated user runs on their
// own account
type ProfileManager struct {
	users  *store.Users
	hasher *security.ArgonHash
}

func NewProfileManager(users *store.Users, hasher *security.ArgonHash) *ProfileManager {
	return &ProfileManager{users: users, hasher: hasher}
}

func (p *ProfileManager) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := p.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newErr(ErrNotFound, "User not found")
		}

		return nil, err
	}

	return user, nil
}

// UpdateProfile overwrites name, email and phone. An empty phone clears it.
func (p *ProfileManager) UpdateProfile(ctx context.Context, userID, name, email, phone string) (*model.User, error) {
	if name == "" || email == "" {
		return nil, newErr(ErrValidation, "Name and email are required")
	}

	if err := validators.EmailValidator(email); err != nil {
		return nil, newErr(ErrValidation, "Please enter a valid email address")
	}

	taken, err := p.users.EmailTakenByOther(ctx, email, userID)
	if err != nil {
		return nil, err
	}

	if taken {
		return nil, newErr(ErrConflict, "Email is already in use")
	}

	err = p.users.UpdateProfile(ctx, userID, name, email, phone)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, newErr(ErrNotFound, "User not found")
		case errors.Is(err, store.ErrDuplicateEmail):
			// Someone claimed the address between the check and the write
			return nil, newErr(ErrConflict, "Email is already in use")
		}

		return nil, err
	}

	return p.GetProfile(ctx, userID)
}

func (p *ProfileManager) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" || next == "" {
		return newErr(ErrValidation, "Current and new password are required")
	}

	if err := validators.PasswordValidator(next); err != nil {
		return newErr(ErrValidation, capitalize(err.Error()))
	}

	user, err := p.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newErr(ErrNotFound, "User not found")
		}

		return err
	}

	ok, err := p.hasher.VerifyPasswd(current, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return newErr(ErrUnauthorized, "Current password is incorrect")
	}

	if current == next {
		return newErr(ErrValidation, "New password must be different from the current one")
	}

	hash, err := p.hasher.GenerateFromPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password, %w", err)
	}

	if err := p.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newErr(ErrNotFound, "User not found")
		}

		return err
	}

	return nil
}
