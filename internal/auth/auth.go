// Package auth handles accounts and session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrSignupDisabled     = errors.New("sign up is disabled")
)

// UserStore is the subset of the local store used for accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u core.User) error
	UserByEmail(ctx context.Context, email string) (core.User, error)
	UserByID(ctx context.Context, id string) (core.User, error)
}

// RevocationStore keeps revoked token ids until the tokens expire.
type RevocationStore interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	PruneRevokedTokens(ctx context.Context) (int64, error)
}

// Store is what the local store provides to auth.
type Store interface {
	UserStore
	RevocationStore
}

type Config struct {
	Secret      []byte
	TTL         time.Duration
	MinPassword int
	AllowSignup bool
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Session is what a verified token says about the caller.
type Session struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Service struct {
	users   UserStore
	denied  RevocationStore
	cfg     Config
	revoked *cache.LRUCache[struct{}]
	now     func() time.Time
}

// NewService wires accounts to store. Revocations are written to store; revoked
// is only a front for lookups, so entries it evicts are still found in store.
func NewService(store Store, cfg Config, revoked *cache.LRUCache[struct{}]) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if cfg.MinPassword <= 0 {
		cfg.MinPassword = 8
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if revoked == nil {
		revoked = cache.NewLRUCache[struct{}](10000, cfg.TTL)
	}
	return &Service{users: store, denied: store, cfg: cfg, revoked: revoked, now: time.Now}
}

// SignUp registers a new account.
func (s *Service) SignUp(ctx context.Context, email, password string) (core.User, error) {
	if !s.cfg.AllowSignup {
		return core.User{}, ErrSignupDisabled
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return core.User{}, err
	}
	if len(password) < s.cfg.MinPassword {
		return core.User{}, fmt.Errorf("%w: at least %d characters", ErrWeakPassword, s.cfg.MinPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := core.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return core.User{}, ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("sign up: %w", err)
	}
	slog.InfoContext(ctx, "User signed up", "user_id", u.ID)
	return u, nil
}

// Login checks credentials. Unknown emails and wrong passwords look the same to callers.
func (s *Service) Login(ctx context.Context, email, password string) (core.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return core.User{}, ErrInvalidCredentials
	}
	u, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.User{}, ErrInvalidCredentials
		}
		return core.User{}, fmt.Errorf("login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "Login failed", "user_id", u.ID)
		return core.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// IssueToken signs a session token for u.
func (s *Service) IssueToken(u core.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.cfg.TTL)
	c := claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, exp, nil
}

// Verify parses a token and rejects expired, tampered or revoked ones.
func (s *Service) Verify(ctx context.Context, token string) (Session, error) {
	c, err := s.parse(token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.isRevoked(ctx, c)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}
	if _, err := s.users.UserByID(ctx, c.Subject); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, fmt.Errorf("%w: unknown user", ErrInvalidToken)
		}
		return Session{}, fmt.Errorf("verify: %w", err)
	}
	return Session{
		UserID:    c.Subject,
		Email:     c.Email,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

func (s *Service) isRevoked(ctx context.Context, c *claims) (bool, error) {
	if _, ok := s.revoked.Get(c.ID); ok {
		return true, nil
	}
	revoked, err := s.denied.IsTokenRevoked(ctx, c.ID)
	if err != nil {
		return false, fmt.Errorf("verify: %w", err)
	}
	if revoked {
		s.revoked.SetUntil(c.ID, struct{}{}, c.ExpiresAt.Time)
	}
	return revoked, nil
}

// Revoke denies a token for the rest of its lifetime. Invalid tokens are ignored.
func (s *Service) Revoke(ctx context.Context, token string) error {
	c, err := s.parse(token)
	if err != nil {
		return nil
	}
	if err := s.denied.RevokeToken(ctx, c.ID, c.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	s.revoked.SetUntil(c.ID, struct{}{}, c.ExpiresAt.Time)
	return nil
}

// CleanExpired drops revocations of expired tokens from the cache and the
// store. It lets the service join a cache.Manager sweep.
func (s *Service) CleanExpired() int {
	n := s.revoked.CleanExpired()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pruned, err := s.denied.PruneRevokedTokens(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to prune revoked tokens", "error", err)
		return n
	}
	return n + int(pruned)
}

// TTL is the lifetime of issued tokens.
func (s *Service) TTL() time.Duration { return s.cfg.TTL }

func (s *Service) parse(token string) (*claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" || c.ID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return c, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
