package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/listenupapp/booklist-server/internal/auth"
	"github.com/listenupapp/booklist-server/internal/domain"
	domainerrors "github.com/listenupapp/booklist-server/internal/errors"
	"github.com/listenupapp/booklist-server/internal/metrics"
	"github.com/listenupapp/booklist-server/internal/normalize"
	"github.com/listenupapp/booklist-server/internal/ratelimit"
	"github.com/listenupapp/booklist-server/internal/store"
)

// AccountService creates users, logs them in and resolves tokens back to users.
type AccountService struct {
	users   store.UserStore
	issuer  auth.Issuer
	secret  *auth.SharedSecret
	limiter *ratelimit.KeyedRateLimiter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewAccountService creates a new account service.
// A nil limiter disables login rate limiting.
func NewAccountService(
	users store.UserStore,
	issuer auth.Issuer,
	secret *auth.SharedSecret,
	limiter *ratelimit.KeyedRateLimiter,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:   users,
		issuer:  issuer,
		secret:  secret,
		limiter: limiter,
		metrics: m,
		logger:  logger,
	}
}

// CreateUserInput contains the createUser arguments.
type CreateUserInput struct {
	Username      string
	FavoriteGenre string
}

// CreateUser registers a user. Usernames are unique.
func (s *AccountService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	user := &domain.User{
		Username:      normalize.Text(in.Username),
		FavoriteGenre: normalize.Text(in.FavoriteGenre),
	}

	err := s.users.CreateUser(ctx, user)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrAlreadyExists):
		return nil, domainerrors.BadUserInput("Creating user failed: username is already taken").
			WithInvalidArgs(in.Username).
			WithCause(err)
	case errors.Is(err, domainerrors.ErrBadUserInput):
		return nil, inputError("Creating user failed", err, in.Username)
	default:
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.metrics.UserCreated()
	s.logger.Info("user created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login checks the shared password for an existing user and issues a token.
// Unknown users and wrong passwords fail identically.
func (s *AccountService) Login(ctx context.Context, username, password string) (domain.Token, error) {
	username = normalize.Text(username)

	if !s.allowLogin(ctx, username) {
		s.metrics.LoginAttempt(metrics.LoginRateLimited)
		s.logger.Warn("login rate limited", "username", username)
		return domain.Token{}, domainerrors.BadUserInput("Too many login attempts, try again later").
			WithInvalidArgs(username)
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		user = nil
	case err != nil:
		return domain.Token{}, fmt.Errorf("look up user: %w", err)
	}

	// Hash even for unknown users so both failures take the same time.
	matches := s.secret.Matches(password)
	if user == nil || !matches {
		s.metrics.LoginAttempt(metrics.LoginWrong)
		s.logger.Debug("login failed", "username", username, "known_user", user != nil)
		return domain.Token{}, errWrongCredentials()
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		return domain.Token{}, fmt.Errorf("issue token: %w", err)
	}

	s.metrics.LoginAttempt(metrics.LoginSuccess)
	s.logger.Info("user logged in", "user_id", user.ID, "token_format", s.issuer.Format())
	return token, nil
}

// allowLogin spends a token from the username's bucket and, when the caller's
// address is known, from the client's bucket too. Fresh usernames from one
// client therefore cannot bypass the limit.
func (s *AccountService) allowLogin(ctx context.Context, username string) bool {
	if s.limiter == nil {
		return true
	}
	if client := ratelimit.ClientFromContext(ctx); client != "" && !s.limiter.Allow("client:"+client) {
		return false
	}
	return s.limiter.Allow("user:" + username)
}

// Authenticate verifies a token and loads the user it was issued to.
func (s *AccountService) Authenticate(ctx context.Context, value string) (*domain.User, error) {
	claims, err := s.issuer.Verify(value)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("load token user %s: %w", claims.UserID, err)
	}
	return user, nil
}
