package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      core.User
}

// AccountService manages users, logins and profiles.
type AccountService struct {
	store           AccountStore
	issuer          *auth.Issuer
	invalidator     Invalidator
	defaultCurrency string
}

func NewAccountService(store AccountStore, issuer *auth.Issuer, invalidator Invalidator, defaultCurrency string) *AccountService {
	if defaultCurrency == "" {
		defaultCurrency = core.DefaultCurrency
	}
	return &AccountService{
		store:           store,
		issuer:          issuer,
		invalidator:     invalidator,
		defaultCurrency: defaultCurrency,
	}
}

// Register creates a user. Taken usernames return storage.ErrDuplicate.
func (s *AccountService) Register(ctx context.Context, username, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.User{}, core.ErrEmptyUsername
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}

	user, err := s.store.CreateUser(ctx, username, hash)
	if err != nil {
		return core.User{}, fmt.Errorf("register %q: %w", username, err)
	}
	return user, nil
}

// Login verifies credentials and issues a bearer token. Unknown users and
// wrong passwords both return auth.ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return Session{}, err
	}

	token, exp, err := s.issuer.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, User: user}, nil
}

// User looks up a user by id.
func (s *AccountService) User(ctx context.Context, userID int64) (core.User, error) {
	return s.store.UserByID(ctx, userID)
}

// Profile returns the user's profile, or an empty one carrying the default
// currency when none was saved yet.
func (s *AccountService) Profile(ctx context.Context, userID int64) (core.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Profile{UserID: userID, Currency: s.defaultCurrency}, nil
	}
	if err != nil {
		return core.Profile{}, err
	}
	if strings.TrimSpace(p.Currency) == "" {
		p.Currency = s.defaultCurrency
	}
	return p, nil
}

// UpdateProfile stores p. The dashboard cache is dropped because it embeds
// the currency.
func (s *AccountService) UpdateProfile(ctx context.Context, p core.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, p.UserID)
	}
	return nil
}
