package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/yamar8/lovetree-backend/db"
	"github.com/yamar8/lovetree-backend/internal/model"
	"github.com/yamar8/lovetree-backend/internal/store"
	"github.com/yamar8/lovetree-backend/pkg/security"

	"github.com/stretchr/testify/require"
)

func TestAnnLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, AuthConfig{})

	resent, err := env.auth.Register(ctx, "Ann", "ann@x.io", "secret123")
	require.NoError(t, err)
	require.False(t, resent)
	require.Equal(t, 1, env.notifier.count())

	user, err := env.users.FindByEmail(ctx, "ann@x.io")
	require.NoError(t, err)
	require.False(t, user.Verified)
	require.True(t, user.PendingVerification())

	sent := env.notifier.last(t)
	require.Equal(t, "ann@x.io", sent.email)
	require.Len(t, sent.code, DefaultCodeLength)

	token, err := env.auth.Verify(ctx, "ann@x.io", sent.code)
	require.NoError(t, err)

	claims, err := env.tokens.Parse(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, security.RoleUser, claims.Role)

	user, err = env.users.FindByEmail(ctx, "ann@x.io")
	require.NoError(t, err)
	require.True(t, user.Verified)
	require.Nil(t, user.VerificationCode)
	require.Nil(t, user.VerificationExpires)

	// The code is single use
	_, err = env.auth.Verify(ctx, "ann@x.io", sent.code)
	requireKind(t, err, ErrInvalidCode)

	token, err = env.auth.Login(ctx, "ann@x.io", "secret123")
	require.NoError(t, err)

	claims, err = env.tokens.Parse(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)

	_, err = env.auth.Login(ctx, "ann@x.io", "wrongpass")
	requireKind(t, err, ErrInvalidCredentials)

	_, err = env.auth.Register(ctx, "Ann", "ann@x.io", "secret123")
	requireKind(t, err, ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, AuthConfig{})

	cases := []struct {
		name, email, password string
	}{
		{"", "ann@x.io", "secret123"},
		{"Ann", "", "secret123"},
		{"Ann", "ann@x.io", ""},
		{"Ann", "not-an-email", "secret123"},
		{"Ann", "ann@x.io", "short"},
	}

	for _, c := range cases {
		_, err := env.auth.Register(ctx, c.name, c.email, c.password)
		requireKind(t, err, ErrValidation)
	}

	require.Zero(t, env.notifier.count())
}

func TestRegisterUnverifiedReissuesCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, AuthConfig{})

	_, err := env.auth.Register(ctx, "Ann", "ann@x.io", "secret123")
	require.NoError(t, err)
	first := env.notifier.last(t)

	before, err := env.users.FindByEmail(ctx, "ann@x.io")
	require.NoError(t, err)

	var second sentCode
	// Codes are random, retry until the overwrite is observable
	for range 5 {
		resent, err := env.auth.Register(ctx, "Ann", "ann@x.io", "secret123")
		require.NoError(t, err)
		require.True(t, resent)

		second = env.notifier.last(t)
		if second.code != first.code {
			break
		}
	}
	require.NotEqual(t, first.code, second.code)

	after, err := env.users.FindByEmail(ctx, "ann@x.io")
	require.NoError(t, err)
	require.Equal(t, before.ID, after.ID)
	require.Equal(t, second.code, *after.VerificationCode)

	_, err = env.auth.Verify(ctx, "ann@x.io", first.code)
	requireKind(t, err, ErrInvalidCode)

	_, err = env.auth.Verify(ctx, "ann@x.io", second.code)
	require.NoError(t, err)
}

func TestRegisterFailedDeliveryLeavesNoUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, AuthConfig{})
	env.notifier.err = errors.New("smtp down")

	_, err := env.auth.Register(ctx, "Ann", "ann@x.io", "secret123")
	requireKind(t, err, ErrDependency)

	_, err = env.users.FindByEmail(ctx, "ann@x.io")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegisterFailedResendKeepsPreviousCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, AuthConfig{})

	_, err := env.auth.Register(ctx, "Ann", "ann@x.io", "secret123")
	require.NoError(t, err)
	first := env.notifier.last(t)

	before, err := env.users.FindByEmail(ctx, "ann@x.io")
	require.NoError(t, err)

	env.notifier.err = errors.New("smtp down")

	_, err = env.auth.Register(ctx, "Ann", "ann@x.io", "secret123")
	requireKind(t, err, ErrDependency)

	after, err := env.users.FindByEmail(ctx, "ann@x.io")
	require.NoError(t, err)
	require.Equal(t, before.ID, after.ID)
	require.Equal(t, first.code, *after.VerificationCode)
	require.True(t, before.VerificationExpires.Equal(*after.VerificationExpires))

	env.notifier.err = nil

	_, err = env.auth.Verify(ctx, "ann@x.io", first.code)
	require.NoError(t, err)
}

type blockingNotifier struct {
	entered chan struct{}
	release chan struct{}
	err     error
}

func (n *blockingNotifier) SendVerificationCode(context.Context, string, string) error {
	n.entered <- struct{}{}
	<-n.release

	return n.err
}

func TestRegisterSlowMailDoesNotBlockWrites(t *testing.T) {
	ctx := context.Background()

	gdb, err := db.New("sqlite", filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	users := store.NewUsers(gdb)
	hasher := testHasher()

	err = users.Create(ctx, &model.User{ID: "bob", Name: "Bob", Email: "bob@x.io", PasswordHash: "x", Verified: true})
	require.NoError(t, err)

	tokens, err := security.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	notifier := &blockingNotifier{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		err:     errors.New("smtp timeout"),
	}
	auth := NewAuthenticator(users, hasher, tokens, NewVerificationIssuer(notifier, 0, 0), nil, AuthConfig{})
	profile := NewProfileManager(users, hasher)

	done := make(chan error, 1)
	go func() {
		_, err := auth.Register(ctx, "Ann", "ann@x.io", "secret123")
		done <- err
	}()

	select {
	case <-notifier.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("verification mail was never sent")
	}

	// The mail is still in flight, other writes go through
	start := time.Now()
	updated, err := profile.UpdateProfile(ctx, "bob", "Robert", "bob@x.io", "555")
	require.NoError(t, err)
	require.Equal(t, "Robert", updated.Name)
	require.Less(t, time.Since(start), time.Second)

	close(notifier.release)
	requireKind(t, <-done, ErrDependency)

	_, err = users.FindByEmail(ctx, "ann@x.io")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestVerifyFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, AuthConfig{})

	_, err := env.auth.Register(ctx, "Ann", "ann@x.io", "secret123")
	require.NoError(t, err)
	sent := env.notifier.last(t)

	_, err = env.auth.Verify(ctx, "bob@x.io", sent.code)
	requireKind(t, err, ErrInvalidCode)

	_, err = env.auth.Verify(ctx, "ann@x.io", "XXXXXXX")
	requireKind(t, err, ErrInvalidCode)

	_, err = env.auth.Verify(ctx, "ann@x.io", "")
	requireKind(t, err, ErrValidation)

	user, err := env.users.FindByEmail(ctx, "ann@x.io")
	require.NoError(t, err)
	expires := *user.VerificationExpires

	// A code is already invalid at the instant it expires
	env.auth.now = func() time.Time { return expires }

	_, err = env.auth.Verify(ctx, "ann@x.io", sent.code)
	requireKind(t, err, ErrExpiredCode)

	env.auth.now = func() time.Time { return expires.Add(time.Second) }

	_, err = env.auth.Verify(ctx, "ann@x.io", sent.code)
	requireKind(t, err, ErrExpiredCode)

	user, err = env.users.FindByEmail(ctx, "ann@x.io")
	require.NoError(t, err)
	require.False(t, user.Verified)

	env.auth.now = func() time.Time { return expires.Add(-time.Millisecond) }

	_, err = env.auth.Verify(ctx, "ann@x.io", sent.code)
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, AuthConfig{})

	_, err := env.auth.Login(ctx, "ghost@x.io", "secret123")
	requireKind(t, err, ErrNotFound)

	_, err = env.auth.Login(ctx, "", "")
	requireKind(t, err, ErrValidation)

	_, err = env.auth.Register(ctx, "Ann", "ann@x.io", "secret123")
	require.NoError(t, err)

	// Unverified accounts may log in unless configured otherwise
	_, err = env.auth.Login(ctx, "ann@x.io", "secret123")
	require.NoError(t, err)

	env.auth.cfg.RequireVerified = true
	_, err = env.auth.Login(ctx, "ann@x.io", "secret123")
	requireKind(t, err, ErrUnauthorized)
}

func TestLoginAdmin(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv(t, AuthConfig{Admin: AdminCredentials{Email: "admin@x.io", Password: "hunter22"}})

	token, err := env.auth.LoginAdmin(ctx, "admin@x.io", "hunter22")
	require.NoError(t, err)

	claims, err := env.tokens.Parse(token)
	require.NoError(t, err)
	require.Equal(t, security.RoleAdmin, claims.Role)
	require.Equal(t, "admin@x.io", claims.Subject)
	require.Empty(t, claims.UserID)
	require.NotContains(t, token, "hunter22")

	_, err = env.auth.LoginAdmin(ctx, "admin@x.io", "hunter23")
	requireKind(t, err, ErrInvalidCredentials)

	_, err = env.auth.LoginAdmin(ctx, "root@x.io", "hunter22")
	requireKind(t, err, ErrInvalidCredentials)

	hash, err := testHasher().GenerateFromPassword("hashed-pass")
	require.NoError(t, err)

	env.auth.cfg.Admin = AdminCredentials{Email: "admin@x.io", PasswordHash: hash}

	_, err = env.auth.LoginAdmin(ctx, "admin@x.io", "hashed-pass")
	require.NoError(t, err)

	_, err = env.auth.LoginAdmin(ctx, "admin@x.io", "hunter22")
	requireKind(t, err, ErrInvalidCredentials)

	env.auth.cfg.Admin = AdminCredentials{}
	_, err = env.auth.LoginAdmin(ctx, "admin@x.io", "hunter22")
	requireKind(t, err, ErrInvalidCredentials)
}

func TestLoginFederated(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, AuthConfig{})

	_, err := env.auth.LoginFederated(ctx, "token")
	requireKind(t, err, ErrDependency)

	verifier := &fakeVerifier{identity: &FederatedIdentity{Subject: "1", Email: "bob@x.io", Name: "Bob", EmailVerified: true}}
	env.auth.federated = verifier

	token, err := env.auth.LoginFederated(ctx, "token")
	require.NoError(t, err)

	bob, err := env.users.FindByEmail(ctx, "bob@x.io")
	require.NoError(t, err)
	require.True(t, bob.Verified)
	require.Equal(t, "Bob", bob.Name)

	claims, err := env.tokens.Parse(token)
	require.NoError(t, err)
	require.Equal(t, bob.ID, claims.UserID)

	// Second login reuses the account
	token, err = env.auth.LoginFederated(ctx, "token")
	require.NoError(t, err)
	claims, err = env.tokens.Parse(token)
	require.NoError(t, err)
	require.Equal(t, bob.ID, claims.UserID)

	// A pending registration is completed by the provider
	_, err = env.auth.Register(ctx, "Ann", "ann@x.io", "secret123")
	require.NoError(t, err)

	verifier.identity = &FederatedIdentity{Subject: "2", Email: "ann@x.io", EmailVerified: true}
	_, err = env.auth.LoginFederated(ctx, "token")
	require.NoError(t, err)

	ann, err := env.users.FindByEmail(ctx, "ann@x.io")
	require.NoError(t, err)
	require.True(t, ann.Verified)
	require.False(t, ann.PendingVerification())
	require.Equal(t, "Ann", ann.Name)

	verifier.identity = &FederatedIdentity{Subject: "3", Email: "eve@x.io", EmailVerified: false}
	_, err = env.auth.LoginFederated(ctx, "token")
	requireKind(t, err, ErrUnauthorized)

	verifier.err = newErr(ErrUnauthorized, "Google authentication failed")
	_, err = env.auth.LoginFederated(ctx, "token")
	requireKind(t, err, ErrUnauthorized)
}
