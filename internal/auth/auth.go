package auth

import (
	"context"
	"errors"
	"fmt"

	"noshow-predictor/internal/logging"
	"noshow-predictor/internal/models"
	"noshow-predictor/internal/session"
	"noshow-predictor/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken = errors.New("username already exists")
	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidInput       = errors.New("username and password required")
)

type CredentialStore interface {
	Lookup(ctx context.Context, username string) (*models.User, error)
	Insert(ctx context.Context, username, passwordHash string) (bool, error)
}

type Authenticator struct {
	store     CredentialStore
	cost      int
	dummyHash []byte
	logger    logging.Logger
}

// NewAuthenticator hashes with the given bcrypt cost; out-of-range values
// fall back to bcrypt.DefaultCost.
func NewAuthenticator(store CredentialStore, cost int, logger logging.Logger) (*Authenticator, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// unknown users are checked against this hash so both login failures
	// cost one bcrypt comparison
	dummy, err := bcrypt.GenerateFromPassword([]byte("no-such-user"), cost)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	return &Authenticator{
		store:     store,
		cost:      cost,
		dummyHash: dummy,
		logger:    logger.With("component", "auth"),
	}, nil
}

func (a *Authenticator) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return fmt.Errorf("%w: password longer than 72 bytes", ErrInvalidInput)
	}
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ok, err := a.store.Insert(ctx, username, string(hash))
	if err != nil {
		return err
	}
	if !ok {
		return ErrUsernameTaken
	}
	a.logger.Info(ctx, "user registered", "username", username)
	return nil
}

// Login verifies the credentials and returns a session that is already in
// the LoggedIn state.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*session.Session, error) {
	user, err := a.store.Lookup(ctx, username)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
		a.logger.Warn(ctx, "login rejected", "username", username)
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		a.logger.Warn(ctx, "login rejected", "username", username)
		return nil, ErrInvalidCredentials
	}

	s := session.New()
	s.Login(user.Username)
	return s, nil
}
