package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"ledger/internal/auth"
	"ledger/internal/core"
	"ledger/internal/storage"
)

// IdentityStore is the persistence the identity service needs.
type IdentityStore interface {
	CreateUser(ctx context.Context, email, name, passwordHash string, session storage.NewSession) (core.User, error)
	UserByEmail(ctx context.Context, email string) (core.User, error)
	UserByID(ctx context.Context, id int64) (core.User, error)
	CreateSession(ctx context.Context, userID int64, session storage.NewSession) error
	SessionUser(ctx context.Context, tokenHash string, now time.Time) (int64, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string, session storage.NewSession) error
	DeleteUser(ctx context.Context, userID int64) error
}

// IdentityOptions tunes token lifetime and hashing cost.
type IdentityOptions struct {
	TokenTTL   time.Duration
	BcryptCost int
}

// IdentityService registers users, checks credentials and issues and
// verifies bearer tokens.
type IdentityService struct {
	store     IdentityStore
	events    EventPublisher
	opts      IdentityOptions
	passwords *auth.Passwords
	now       func() time.Time
}

// Session is the result of a successful register or login.
type Session struct {
	User  core.User
	Token string
}

func NewIdentityService(store IdentityStore, events EventPublisher, opts IdentityOptions) (*IdentityService, error) {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 30 * 24 * time.Hour
	}
	passwords, err := auth.NewPasswords(opts.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &IdentityService{
		store:     store,
		events:    events,
		opts:      opts,
		passwords: passwords,
		now:       time.Now,
	}, nil
}

// newSession mints a token and the row that represents it.
func (s *IdentityService) newSession() (string, storage.NewSession, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", storage.NewSession{}, err
	}
	return token, storage.NewSession{
		TokenHash: auth.HashToken(token),
		ExpiresAt: s.now().Add(s.opts.TokenTTL),
	}, nil
}

func (s *IdentityService) Register(ctx context.Context, email, password, name string) (Session, error) {
	const op = "register"
	email, err := core.NormalizeEmail(email)
	if err != nil {
		return Session{}, core.Validation(op, err)
	}
	if err := core.ValidatePassword(password); err != nil {
		return Session{}, core.Validation(op, err)
	}
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > core.MaxTitleLength {
		return Session{}, core.Validation(op, fmt.Errorf("name too long (max %d characters)", core.MaxTitleLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	token, session, err := s.newSession()
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.store.CreateUser(ctx, email, name, hash, session)
	if err != nil {
		return Session{}, err
	}
	slog.InfoContext(ctx, "User registered", "user_id", user.ID)
	return Session{User: user, Token: token}, nil
}

// Authenticate never says which of email or password was wrong.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (Session, error) {
	const op = "authenticate"
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, core.Validation(op, fmt.Errorf("email and password are required"))
	}

	normalized, err := core.NormalizeEmail(email)
	var user core.User
	if err == nil {
		user, err = s.store.UserByEmail(ctx, normalized)
	}
	if err != nil && core.KindOf(err) == core.KindStore {
		return Session{}, err
	}
	if !s.passwords.Check(password, user.PasswordHash) {
		return Session{}, core.Unauthorized(op, core.ErrInvalidCredentials)
	}

	token, session, err := s.newSession()
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.CreateSession(ctx, user.ID, session); err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token}, nil
}

// VerifyToken resolves a bearer token to its user id. It has no side
// effects.
func (s *IdentityService) VerifyToken(ctx context.Context, token string) (int64, error) {
	const op = "verify token"
	if !auth.WellFormedToken(token) {
		return 0, core.Unauthorized(op, core.ErrUnauthorized)
	}
	userID, err := s.store.SessionUser(ctx, auth.HashToken(token), s.now())
	if err != nil {
		if core.KindOf(err) == core.KindNotFound {
			return 0, core.Unauthorized(op, core.ErrUnauthorized)
		}
		return 0, err
	}
	return userID, nil
}

// Logout revokes one token. Unknown tokens are ignored.
func (s *IdentityService) Logout(ctx context.Context, token string) error {
	if !auth.WellFormedToken(token) {
		return nil
	}
	return s.store.DeleteSession(ctx, auth.HashToken(token))
}

func (s *IdentityService) Me(ctx context.Context, userID int64) (core.User, error) {
	return s.store.UserByID(ctx, userID)
}

// ChangePassword replaces the password after checking the old one. Every
// existing session is revoked and the returned token is the only valid one.
func (s *IdentityService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword, confirm string) (string, error) {
	const op = "change password"
	if err := core.ValidatePassword(newPassword); err != nil {
		return "", core.Validation(op, err)
	}
	if confirm != "" && confirm != newPassword {
		return "", core.Validation(op, core.ErrPasswordMismatch)
	}

	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		if core.KindOf(err) == core.KindNotFound {
			return "", core.Unauthorized(op, core.ErrUnauthorized)
		}
		return "", err
	}
	if !s.passwords.Check(oldPassword, user.PasswordHash) {
		return "", core.Unauthorized(op, core.ErrInvalidCredentials)
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	token, session, err := s.newSession()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.UpdatePassword(ctx, userID, hash, session); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Password changed, sessions revoked", "user_id", userID)
	return token, nil
}

// DeleteAccount removes the user with all budgets, transactions and
// sessions. A second call reports not found.
func (s *IdentityService) DeleteAccount(ctx context.Context, userID int64) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Account deleted", "user_id", userID)
	publishEvent(ctx, s.events, core.LedgerEvent{Type: core.EventAccountDeleted, UserID: userID, EntityID: userID})
	return nil
}
