package service

import (
	"context"
	"errors"
	"time"

	"github.com/yamar8/lovetree-backend/internal/store"
	"github.com/yamar8/lovetree-backend/pkg/util"

	"go.uber.org/zap"
)

const (
	DefaultCodeLength = 6
	DefaultCodeTTL    = 10 * time.Minute
)

// VerificationIssuer creates email verification codes, stores them on the
// user and hands them to the notifier
type VerificationIssuer struct {
	notifier Notifier
	codeLen  int
	ttl      time.Duration
	now      func() time.Time
}

func NewVerificationIssuer(n Notifier, codeLen int, ttl time.Duration) *VerificationIssuer {
	if codeLen <= 0 {
		codeLen = DefaultCodeLength
	}

	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}

	return &VerificationIssuer{
		notifier: n,
		codeLen:  codeLen,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue overwrites any pending code of the user registered under email and
// sends the new one. Exactly one notification goes out per successful call.
// The code is committed before the mail is sent; a failed delivery puts the
// previous code and expiry back.
func (v *VerificationIssuer) Issue(ctx context.Context, users *store.Users, email string) (code string, expiresAt time.Time, err error) {
	user, err := users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", time.Time{}, newErr(ErrNotFound, "User not found")
		}

		return "", time.Time{}, err
	}

	code, err = util.RandomCode(v.codeLen)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt = v.now().Add(v.ttl)

	if err := users.SetVerificationCode(ctx, user.ID, code, expiresAt); err != nil {
		return "", time.Time{}, err
	}

	if err := v.notifier.SendVerificationCode(ctx, user.Email, code); err != nil {
		rerr := users.RestoreVerificationCode(context.WithoutCancel(ctx), user.ID, user.VerificationCode, user.VerificationExpires)
		if rerr != nil {
			zap.L().Error("Failed to restore previous verification code", zap.String("userID", user.ID), zap.Error(rerr))
		}

		return "", time.Time{}, wrapErr(ErrDependency, "Failed to send verification email", err)
	}

	return code, expiresAt, nil
}
