package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yamar8/lovetree-backend/db"
	"github.com/yamar8/lovetree-backend/internal/store"
	"github.com/yamar8/lovetree-backend/pkg/security"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.New("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return gdb
}

func testHasher() *security.ArgonHash {
	return &security.ArgonHash{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

type sentCode struct {
	email string
	code  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (n *fakeNotifier) SendVerificationCode(_ context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.err != nil {
		return n.err
	}

	n.sent = append(n.sent, sentCode{email: email, code: code})
	return nil
}

func (n *fakeNotifier) last(t *testing.T) sentCode {
	t.Helper()

	n.mu.Lock()
	defer n.mu.Unlock()

	require.NotEmpty(t, n.sent, "no code was sent")
	return n.sent[len(n.sent)-1]
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.sent)
}

type fakeVerifier struct {
	identity *FederatedIdentity
	err      error
}

func (v *fakeVerifier) Verify(context.Context, string) (*FederatedIdentity, error) {
	return v.identity, v.err
}

type fakeImageStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	// Uploads with this content type fail
	failType string
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{objects: map[string][]byte{}}
}

func (s *fakeImageStore) Upload(_ context.Context, key, contentType string, body io.Reader) (string, error) {
	if contentType == s.failType {
		return "", errors.New("upload refused")
	}

	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = b
	return "https://cdn.example.com/" + key, nil
}

func (s *fakeImageStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.objects, k)
		s.deleted = append(s.deleted, k)
	}

	return nil
}

func (s *fakeImageStore) live() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.objects)
}

func pngImage() Image {
	return Image{Body: bytes.NewReader([]byte("\x89PNG\r\n\x1a\nfake")), ContentType: "image/png"}
}

type testEnv struct {
	users    *store.Users
	notifier *fakeNotifier
	tokens   *security.TokenManager
	auth     *Authenticator
	profile  *ProfileManager
}

func newTestEnv(t *testing.T, cfg AuthConfig) *testEnv {
	t.Helper()

	gdb := testDB(t)
	users := store.NewUsers(gdb)
	notifier := &fakeNotifier{}
	hasher := testHasher()

	tokens, err := security.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	issuer := NewVerificationIssuer(notifier, DefaultCodeLength, DefaultCodeTTL)

	return &testEnv{
		users:    users,
		notifier: notifier,
		tokens:   tokens,
		auth:     NewAuthenticator(users, hasher, tokens, issuer, nil, cfg),
		profile:  NewProfileManager(users, hasher),
	}
}

func requireKind(t *testing.T, err error, kind error) {
	t.Helper()

	require.Error(t, err)
	require.ErrorIs(t, err, kind)

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.NotEmpty(t, svcErr.Msg)
}
