// Package store persists users and products through gorm
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yamar8/lovetree-backend/internal/model"

	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Users is the credential store
type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// Transaction runs fn against a store bound to a single database transaction.
// Returning an error from fn rolls everything back.
func (u *Users) Transaction(ctx context.Context, fn func(tx *Users) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Users{db: tx})
	})
}

func (u *Users) FindByID(ctx context.Context, id string) (*model.User, error) {
	return u.findOne(ctx, "id = ?", id)
}

func (u *Users) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.findOne(ctx, "email = ?", email)
}

func (u *Users) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var user model.User

	err := u.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to fetch user, %w", err)
	}

	return &user, nil
}

// EmailTakenByOther reports whether email belongs to a user other than id
func (u *Users) EmailTakenByOther(ctx context.Context, email, id string) (bool, error) {
	var count int64

	err := u.db.WithContext(ctx).
		Model(model.User{}).
		Where("email = ? AND id <> ?", email, id).
		Count(&count).
		Error
	if err != nil {
		return false, fmt.Errorf("failed to check email ownership, %w", err)
	}

	return count > 0, nil
}

func (u *Users) Create(ctx context.Context, user *model.User) error {
	err := u.db.WithContext(ctx).Create(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}

		return fmt.Errorf("failed to create user, %w", err)
	}

	return nil
}

// SetVerificationCode overwrites the pending code and its expiry in one statement
func (u *Users) SetVerificationCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	return u.update(ctx, id, map[string]any{
		"verification_code":    code,
		"verification_expires": expiresAt,
	})
}

// RestoreVerificationCode puts back a previous code and expiry. Nil values clear both.
func (u *Users) RestoreVerificationCode(ctx context.Context, id string, code *string, expiresAt *time.Time) error {
	fields := map[string]any{
		"verification_code":    nil,
		"verification_expires": nil,
	}

	if code != nil && expiresAt != nil {
		fields["verification_code"] = *code
		fields["verification_expires"] = *expiresAt
	}

	return u.update(ctx, id, fields)
}

// MarkVerified flags the user as verified and drops the pending code and expiry together
func (u *Users) MarkVerified(ctx context.Context, id string) error {
	return u.update(ctx, id, map[string]any{
		"verified":             true,
		"verification_code":    nil,
		"verification_expires": nil,
	})
}

func (u *Users) UpdateProfile(ctx context.Context, id, name, email, phone string) error {
	return u.update(ctx, id, map[string]any{
		"name":  name,
		"email": email,
		"phone": phone,
	})
}

func (u *Users) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return u.update(ctx, id, map[string]any{
		"password_hash": hash,
	})
}

func (u *Users) update(ctx context.Context, id string, fields map[string]any) error {
	r := u.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(fields)
	if r.Error != nil {
		if errors.Is(r.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}

		return fmt.Errorf("failed to update user, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (u *Users) Delete(ctx context.Context, id string) error {
	r := u.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{})
	if r.Error != nil {
		return fmt.Errorf("failed to delete user, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteStaleUnverified removes unverified users whose code expired before t
func (u *Users) DeleteStaleUnverified(ctx context.Context, t time.Time) (int64, error) {
	r := u.db.WithContext(ctx).
		Where("verified = ? AND verification_expires IS NOT NULL AND verification_expires < ?", false, t).
		Delete(&model.User{})
	if r.Error != nil {
		return 0, fmt.Errorf("failed to delete stale accounts, %w", r.Error)
	}

	return r.RowsAffected, nil
}
