// Package service holds the application logic sitting between the HTTP
// handlers and the stores
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yamar8/lovetree-backend/internal/model"
	"github.com/yamar8/lovetree-backend/internal/store"
	"github.com/yamar8/lovetree-backend/pkg/security"
	"github.com/yamar8/lovetree-backend/pkg/util"
	"github.com/yamar8/lovetree-backend/pkg/validators"

	"go.uber.org/zap"
)

// Federated accounts never log in with a password, this one only has to be unguessable
const federatedPasswordLength = 32

// AdminCredentials is the single administrative login. It lives in the config,
// never in the credential store. When PasswordHash is set it takes precedence
// over the plaintext Password.
type AdminCredentials struct {
	Email        string
	Password     string
	PasswordHash string
}

type AuthConfig struct {
	// Refuse password logins until the email is verified
	RequireVerified bool
	Admin           AdminCredentials
}

type Authenticator struct {
	users     *store.Users
	hasher    *security.ArgonHash
	tokens    *security.TokenManager
	issuer    *VerificationIssuer
	federated IdentityVerifier
	cfg       AuthConfig
	now       func() time.Time
}

func NewAuthenticator(
	users *store.Users,
	hasher *security.ArgonHash,
	tokens *security.TokenManager,
	issuer *VerificationIssuer,
	federated IdentityVerifier,
	cfg AuthConfig,
) *Authenticator {
	return &Authenticator{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		issuer:    issuer,
		federated: federated,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Register creates an unverified account and mails it a verification code.
// Registering again with the email of an unverified account only replaces its
// code, reported through resent. The mail goes out after the record is
// committed. A failed delivery deletes the fresh account, or restores the
// previous code of an existing one.
func (a *Authenticator) Register(ctx context.Context, name, email, password string) (resent bool, err error) {
	if name == "" || email == "" || password == "" {
		return false, newErr(ErrValidation, "All fields are required")
	}

	if err := validators.EmailValidator(email); err != nil {
		return false, newErr(ErrValidation, "Please enter a valid email address")
	}

	if err := validators.PasswordValidator(password); err != nil {
		return false, newErr(ErrValidation, capitalize(err.Error()))
	}

	var createdID string

	err = a.users.Transaction(ctx, func(tx *store.Users) error {
		existing, err := tx.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if existing != nil {
			if existing.Verified {
				return newErr(ErrConflict, "User already exists with this email")
			}

			resent = true
			return nil
		}

		hash, err := a.hasher.GenerateFromPassword(password)
		if err != nil {
			return fmt.Errorf("failed to hash password, %w", err)
		}

		userID, err := util.NewID()
		if err != nil {
			return fmt.Errorf("failed to generate user ID, %w", err)
		}

		err = tx.Create(ctx, &model.User{
			ID:           userID,
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Verified:     false,
			CartData:     model.JSONMap{},
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				return newErr(ErrConflict, "User already exists with this email")
			}

			return err
		}

		createdID = userID
		return nil
	})
	if err != nil {
		return false, err
	}

	if _, _, err := a.issuer.Issue(ctx, a.users, email); err != nil {
		if createdID != "" {
			derr := a.users.Delete(context.WithoutCancel(ctx), createdID)
			if derr != nil && !errors.Is(derr, store.ErrNotFound) {
				zap.L().Error("Failed to remove account after failed verification mail", zap.String("userID", createdID), zap.Error(derr))
			}
		}

		return false, err
	}

	return resent, nil
}

// Verify consumes a pending code and returns a session token
func (a *Authenticator) Verify(ctx context.Context, email, code string) (string, error) {
	if email == "" || code == "" {
		return "", newErr(ErrValidation, "Email and code are required")
	}

	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", newErr(ErrInvalidCode, "Invalid verification code")
		}

		return "", err
	}

	if !user.PendingVerification() ||
		subtle.ConstantTimeCompare([]byte(code), []byte(*user.VerificationCode)) != 1 {
		return "", newErr(ErrInvalidCode, "Invalid verification code")
	}

	if !a.now().Before(*user.VerificationExpires) {
		return "", newErr(ErrExpiredCode, "Verification code expired")
	}

	if err := a.users.MarkVerified(ctx, user.ID); err != nil {
		return "", err
	}

	return a.tokens.Issue(user.ID, security.RoleUser)
}

func (a *Authenticator) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", newErr(ErrValidation, "Email and password are required")
	}

	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", newErr(ErrNotFound, "User not found")
		}

		return "", err
	}

	ok, err := a.hasher.VerifyPasswd(password, user.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return "", newErr(ErrInvalidCredentials, "Invalid credentials")
	}

	if a.cfg.RequireVerified && !user.Verified {
		return "", newErr(ErrUnauthorized, "Please verify your email before logging in")
	}

	return a.tokens.Issue(user.ID, security.RoleUser)
}

// LoginFederated trusts the identity provider for the email address. Unknown
// addresses get a verified account with a random password, known ones are
// reused and marked verified.
func (a *Authenticator) LoginFederated(ctx context.Context, identityToken string) (string, error) {
	if a.federated == nil {
		return "", newErr(ErrDependency, "Google authentication is not configured")
	}

	identity, err := a.federated.Verify(ctx, identityToken)
	if err != nil {
		return "", err
	}

	if !identity.EmailVerified {
		return "", newErr(ErrUnauthorized, "Google account email is not verified")
	}

	user, err := a.users.FindByEmail(ctx, identity.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	if user == nil {
		user, err = a.createFederatedUser(ctx, identity)
		if err != nil {
			return "", err
		}
	} else if !user.Verified {
		if err := a.users.MarkVerified(ctx, user.ID); err != nil {
			return "", err
		}
	}

	return a.tokens.Issue(user.ID, security.RoleUser)
}

func (a *Authenticator) createFederatedUser(ctx context.Context, identity *FederatedIdentity) (*model.User, error) {
	password, err := util.RandomString(federatedPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate password, %w", err)
	}

	hash, err := a.hasher.GenerateFromPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	userID, err := util.NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID, %w", err)
	}

	name := identity.Name
	if name == "" {
		name, _, _ = strings.Cut(identity.Email, "@")
	}

	user := &model.User{
		ID:           userID,
		Name:         name,
		Email:        identity.Email,
		PasswordHash: hash,
		Verified:     true,
		CartData:     model.JSONMap{},
	}

	if err := a.users.Create(ctx, user); err != nil {
		// Lost a race against a concurrent first login with the same account
		if errors.Is(err, store.ErrDuplicateEmail) {
			return a.users.FindByEmail(ctx, identity.Email)
		}

		return nil, err
	}

	return user, nil
}

func (a *Authenticator) LoginAdmin(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", newErr(ErrValidation, "Email and password are required")
	}

	admin := a.cfg.Admin
	if admin.Email == "" || (admin.Password == "" && admin.PasswordHash == "") {
		return "", newErr(ErrInvalidCredentials, "Invalid credentials")
	}

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(admin.Email)) == 1

	var passOK bool
	if admin.PasswordHash != "" {
		ok, err := a.hasher.VerifyPasswd(password, admin.PasswordHash)
		if err != nil {
			return "", fmt.Errorf("failed to verify admin password, %w", err)
		}

		passOK = ok
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(admin.Password)) == 1
	}

	if !emailOK || !passOK {
		return "", newErr(ErrInvalidCredentials, "Invalid credentials")
	}

	return a.tokens.Issue(admin.Email, security.RoleAdmin)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
