/*
Package session owns the authenticated-user identity: it issues login and signup
requests, persists and restores the session record, and is the only component
permitted to write the persisted credential.

This file defines the Session state machine. The invariant throughout: a
credential is held if and only if the status is Authenticated, and the
in-memory state and the persisted record move together or not at all.
*/
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"miniblog/internal/app/blog"
	"miniblog/internal/pkg/errs"
	"miniblog/internal/pkg/logx"
)

// Status is the session state visible to consumers.
type Status int

const (
	// Unauthenticated is the initial state and the state after logout.
	Unauthenticated Status = iota

	// Authenticating is the transient state while a login or signup is in flight.
	Authenticating

	// Authenticated means a user and credential are held.
	Authenticated
)

// String returns the display name of the status.
func (s Status) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Session is the single source of truth for who is using the app right now.
// All mutations serialize behind one mutex; a second login or signup while one
// is in flight is rejected rather than queued.
type Session struct {
	api   *blog.Client
	store Store

	mu       sync.Mutex
	user     *blog.User
	token    string
	inflight bool

	logger zerolog.Logger
}

// New constructs a Session bound to the given REST client and store, and
// registers itself as the client's credential source.
func New(api *blog.Client, store Store) *Session {
	s := &Session{
		api:    api,
		store:  store,
		logger: logx.Logger().With().Str("component", "session").Logger(),
	}
	api.SetTokenSource(s)
	return s
}

// Status reports the current state of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.inflight:
		return Authenticating
	case s.token != "":
		return Authenticated
	default:
		return Unauthenticated
	}
}

// CurrentUser returns a copy of the authenticated user's profile. The second
// return value is false when no user is held.
func (s *Session) CurrentUser() (blog.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return blog.User{}, false
	}
	return *s.user, true
}

// Token implements blog.TokenSource. It fails with ErrAuthRequired before any
// network call when no credential is held.
func (s *Session) Token() (string, *errs.CustomError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" {
		return "", errs.NewError(errs.ErrAuthRequired)
	}
	return s.token, nil
}

// Restore attempts to rebuild the session from the persisted record. It is
// invoked once at startup, makes no network call, and trusts the local record
// until the first authenticated action fails server-side. A partial or
// corrupt record clears the store and leaves the session Unauthenticated;
// so does a missing one, with nothing to clear. Calling Restore again is a
// no-op in that case.
func (s *Session) Restore() {
	s.mu.Lock()
	defer s.mu.Unlock()

	userJSON, token, err := s.store.Load()
	if err != nil {
		if err != ErrNoSession {
			s.logger.Warn().Err(err).Msg("Persisted session incomplete or unreadable, clearing record")
			s.clearLocked()
		}
		return
	}

	var user blog.User
	if err := json.Unmarshal(userJSON, &user); err != nil || user.ID == "" {
		s.logger.Warn().Err(err).Msg("Persisted session corrupt, clearing record")
		s.clearLocked()
		return
	}

	s.user = &user
	s.token = token
	s.logger.Info().Str("user_id", user.ID).Msg("Session restored from persisted record")
}

// Login authenticates with email and password. Both fields are required and
// checked before any network call. On success the in-memory state and the
// persisted record update as one atomic step; on any failure neither changes.
func (s *Session) Login(ctx context.Context, email, password string) *errs.CustomError {
	if email == "" || password == "" {
		return errs.NewError(errs.ErrMissingCredentials)
	}

	if customErr := s.begin(); customErr != nil {
		return customErr
	}
	defer s.end()

	result, customErr := s.api.Login(ctx, email, password)
	if customErr != nil {
		s.logger.Warn().Int("code", customErr.Code).Msg("Login failed")
		return customErr
	}

	return s.commit(result)
}

// Signup registers a new account. Email, password, and username are required,
// and the client-only confirmation must equal the password; all of this is
// checked before any network call. Otherwise Signup behaves like Login with
// respect to state transition and persistence.
func (s *Session) Signup(ctx context.Context, input blog.SignupInput) *errs.CustomError {
	if input.Email == "" || input.Password == "" || input.Username == "" {
		return errs.NewError(errs.ErrMissingRequiredFields)
	}
	if input.Password != input.ConfirmPassword {
		return errs.NewError(errs.ErrPasswordMismatch)
	}

	if customErr := s.begin(); customErr != nil {
		return customErr
	}
	defer s.end()

	result, customErr := s.api.Signup(ctx, input)
	if customErr != nil {
		s.logger.Warn().Int("code", customErr.Code).Msg("Signup failed")
		return customErr
	}

	return s.commit(result)
}

// Logout unconditionally clears the in-memory state and the persisted record.
// It always succeeds and is idempotent.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
	s.logger.Info().Msg("Session cleared")
}

// begin marks a login/signup in flight, rejecting re-entry.
func (s *Session) begin() *errs.CustomError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight {
		return errs.NewError(errs.ErrOperationInFlight)
	}
	s.inflight = true
	return nil
}

// end clears the in-flight flag.
func (s *Session) end() {
	s.mu.Lock()
	s.inflight = false
	s.mu.Unlock()
}

// commit persists the auth result and installs it in memory. The store write
// happens first; when it fails the in-memory state is left untouched, so the
// UI and the persisted record never disagree.
func (s *Session) commit(result *blog.AuthResult) *errs.CustomError {
	userJSON, err := json.Marshal(result.User)
	if err != nil {
		return errs.Wrap(err, errs.ErrUnknown)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(userJSON, result.Token); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist session record")
		return errs.Wrap(err, errs.ErrUnknown)
	}

	user := result.User
	s.user = &user
	s.token = result.Token

	s.logger.Info().Str("user_id", user.ID).Msg("Session established")
	return nil
}

// clearLocked resets memory and storage. Callers hold s.mu.
func (s *Session) clearLocked() {
	s.user = nil
	s.token = ""
	if err := s.store.Clear(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear persisted session record")
	}
}
