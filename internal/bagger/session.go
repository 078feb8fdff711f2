package bagger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bagger/internal/api"
	"bagger/internal/apperror"
	"bagger/internal/auth"
	"bagger/internal/model"
)

// SessionState is the authentication state of a Session.
type SessionState int

const (
	Anonymous SessionState = iota
	Checking
	Authenticated
)

func (s SessionState) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Session tracks who is signed in. Logging out, forced or not, runs every
// registered reset hook so no per-user state outlives the session.
type Session struct {
	backend AuthBackend
	tokens  *TokenStore
	clock   Clock
	logger  Logger
	retry   api.RetryPolicy

	mu    sync.RWMutex
	state SessionState
	user  *model.User
	hooks []func(userID int64)
}

// NewSession creates an anonymous Session.
func NewSession(backend AuthBackend, tokens *TokenStore, clock Clock, logger Logger, retry api.RetryPolicy) *Session {
	return &Session{
		backend: backend,
		tokens:  tokens,
		clock:   clock,
		logger:  logger,
		retry:   retry,
	}
}

// OnReset registers fn to run on every logout. fn receives the id of the
// user being signed out, or 0 when it cannot be determined.
func (s *Session) OnReset(fn func(userID int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// State returns the current state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Start restores the session from a persisted token.
//
// Without a token the session stays anonymous and Start returns nil. An
// expired or rejected token is discarded and ErrUnauthorized is returned.
// Any other failure leaves the session anonymous with the token kept, and
// the error is returned so the caller can warn about it.
func (s *Session) Start(ctx context.Context) error {
	token := s.tokens.Token()
	if token == "" {
		s.setState(Anonymous, nil)
		return nil
	}

	s.setState(Checking, nil)

	if info, err := auth.Inspect(token); err == nil && info.Expired(s.clock.Now()) {
		s.logger.Info("stored token expired", "expired_at", info.ExpiresAt)
		s.ForceLogout()
		return apperror.ErrUnauthorized
	}

	var user *model.User
	err := api.Retry(ctx, s.retry, func(ctx context.Context) error {
		u, err := s.backend.Me(ctx)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	switch {
	case err == nil:
		s.setState(Authenticated, user)
		s.logger.Info("session restored", "user_id", user.ID)
		return nil
	case errors.Is(err, apperror.ErrUnauthorized):
		s.ForceLogout()
		return apperror.ErrUnauthorized
	default:
		s.setState(Anonymous, nil)
		s.logger.Warn("session check failed", "error", err)
		return fmt.Errorf("checking session: %w", err)
	}
}

// Login exchanges credentials for a token and signs the user in.
// On failure the session state is unchanged.
func (s *Session) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperror.ValidationFailed("email", "Email is required")
	}
	if password == "" {
		return apperror.ValidationFailed("password", "Password is required")
	}

	res, err := s.backend.Login(ctx, model.Credentials{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	if res == nil || res.AccessToken == "" {
		return apperror.ErrInvalidResponse
	}

	if err := s.tokens.Set(res.AccessToken); err != nil {
		return err
	}

	user := res.User
	if user == nil {
		u, err := s.backend.Me(ctx)
		if err != nil {
			s.tokens.Clear()
			return fmt.Errorf("loading user after login: %w", err)
		}
		user = u
	}

	s.setState(Authenticated, user)
	s.logger.Info("logged in", "user_id", user.ID)
	return nil
}

// Signup creates an account and then logs in with the same credentials.
func (s *Session) Signup(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.ValidationFailed("name", "Name is required")
	}
	if strings.TrimSpace(email) == "" {
		return apperror.ValidationFailed("email", "Email is required")
	}
	if password == "" {
		return apperror.ValidationFailed("password", "Password is required")
	}

	in := model.SignupInput{Name: name, Email: strings.TrimSpace(email), Password: password}
	if err := s.backend.CreateUser(ctx, in); err != nil {
		return fmt.Errorf("creating account: %w", err)
	}
	return s.Login(ctx, email, password)
}

// Logout signs the user out.
func (s *Session) Logout() {
	s.ForceLogout()
}

// ForceLogout discards the token, becomes anonymous and runs the reset hooks.
// Safe to call repeatedly and from the API client's unauthorized handler.
func (s *Session) ForceLogout() {
	userID := s.departingUserID()
	if err := s.tokens.Clear(); err != nil {
		s.logger.Error("clearing token failed", "error", err)
	}

	s.mu.Lock()
	s.state = Anonymous
	s.user = nil
	hooks := append([]func(int64){}, s.hooks...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(userID)
	}
}

// departingUserID is the signed-in user's id, or the subject of the stored
// token when the session was never confirmed.
func (s *Session) departingUserID() int64 {
	s.mu.RLock()
	user := s.user
	s.mu.RUnlock()
	if user != nil {
		return user.ID
	}

	info, err := auth.Inspect(s.tokens.Token())
	if err != nil {
		return 0
	}
	id, _ := info.UserID()
	return id
}

func (s *Session) setState(state SessionState, user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.user = user
}
