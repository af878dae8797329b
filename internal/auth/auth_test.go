package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"budget/internal/cache"
	"budget/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newServiceWith(repo *storage.SQLiteRepository, revoked *cache.LRUCache[struct{}]) *Service {
	return NewService(repo, Config{
		Secret:      []byte("test-secret"),
		TTL:         time.Hour,
		MinPassword: 8,
		AllowSignup: true,
		BcryptCost:  bcrypt.MinCost,
	}, revoked)
}

func newTestService(t *testing.T, allowSignup bool) *Service {
	t.Helper()
	s := newServiceWith(newTestRepo(t), cache.NewLRUCache[struct{}](100, time.Hour))
	s.cfg.AllowSignup = allowSignup
	return s
}

func TestSignUpAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, true)

	u, err := s.SignUp(ctx, "  Alice@Example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	got, err := s.Login(ctx, "ALICE@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Login(ctx, "alice@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUpValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, true)

	_, err := s.SignUp(ctx, "not-an-email", "long enough")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = s.SignUp(ctx, "bob@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = s.SignUp(ctx, "bob@example.com", "long enough")
	require.NoError(t, err)
	_, err = s.SignUp(ctx, "BOB@example.com", "long enough")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignUpDisabled(t *testing.T) {
	s := newTestService(t, false)
	_, err := s.SignUp(context.Background(), "carol@example.com", "long enough")
	assert.ErrorIs(t, err, ErrSignupDisabled)
}

func TestTokenRoundTripAndRevoke(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, true)
	u, err := s.SignUp(ctx, "dave@example.com", "long enough")
	require.NoError(t, err)

	token, exp, err := s.IssueToken(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	sess, err := s.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.UserID)
	assert.Equal(t, "dave@example.com", sess.Email)

	require.NoError(t, s.Revoke(ctx, token))
	_, err = s.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Revoking garbage is a no-op.
	assert.NoError(t, s.Revoke(ctx, "garbage"))
}

func TestRevocationSurvivesCacheEviction(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	s := newServiceWith(repo, cache.NewLRUCache[struct{}](2, time.Hour))

	u, err := s.SignUp(ctx, "gina@example.com", "long enough")
	require.NoError(t, err)

	first, _, err := s.IssueToken(u)
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, first))

	// push the first revocation out of the two-entry cache
	for i := 0; i < 5; i++ {
		token, _, err := s.IssueToken(u)
		require.NoError(t, err)
		require.NoError(t, s.Revoke(ctx, token))
	}

	_, err = s.Verify(ctx, first)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevocationSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	s := newServiceWith(repo, nil)

	u, err := s.SignUp(ctx, "hank@example.com", "long enough")
	require.NoError(t, err)
	token, _, err := s.IssueToken(u)
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, token))

	restarted := newServiceWith(repo, nil)
	_, err = restarted.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCleanExpiredPrunesStore(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	s := newServiceWith(repo, nil)

	u, err := s.SignUp(ctx, "ivy@example.com", "long enough")
	require.NoError(t, err)
	token, _, err := s.IssueToken(u)
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, token))

	assert.Equal(t, 0, s.CleanExpired(), "unexpired revocations stay")

	ok, err := repo.IsTokenRevoked(ctx, mustTokenID(t, s, token))
	require.NoError(t, err)
	assert.True(t, ok)
}

func mustTokenID(t *testing.T, s *Service, token string) string {
	t.Helper()
	c, err := s.parse(token)
	require.NoError(t, err)
	return c.ID
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, true)
	u, err := s.SignUp(ctx, "erin@example.com", "long enough")
	require.NoError(t, err)
	token, _, err := s.IssueToken(u)
	require.NoError(t, err)

	_, err = s.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Verify(ctx, token+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := newTestService(t, true)
	other.cfg.Secret = []byte("another-secret")
	_, err = other.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyUnknownUser(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, true)
	u, err := s.SignUp(ctx, "frank@example.com", "long enough")
	require.NoError(t, err)
	token, _, err := s.IssueToken(u)
	require.NoError(t, err)

	// Same secret, different database.
	fresh := newTestService(t, true)
	_, err = fresh.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
