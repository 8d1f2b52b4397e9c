/*
Package session owns the authenticated-user identity: it issues login and signup
requests, persists and restores the session record, and is the only component
permitted to write the persisted credential.

This file defines the Store abstraction over the two persisted slots (serialized
user profile and opaque token) and its file-backed implementation.
*/
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists the session record. Both slots are required together for a
// session to be restorable; either one missing means logged out.
type Store interface {
	// Save writes both slots. Implementations must not leave one slot
	// written without the other.
	Save(userJSON []byte, token string) error

	// Load reads both slots. It returns ErrNoSession when nothing is
	// persisted and ErrPartialSession when only part of a record remains.
	Load() (userJSON []byte, token string, err error)

	// Clear removes both slots. Clearing an empty store is not an error.
	Clear() error
}

// ErrNoSession is returned by Load when nothing is persisted.
var ErrNoSession = errors.New("session: no persisted session")

// ErrPartialSession is returned by Load when only part of a record survives,
// for example after an interrupted write. Callers clear the remains.
var ErrPartialSession = errors.New("session: partial session record")

const (
	userFileName  = "user.json"
	tokenFileName = "token"
)

// FileStore keeps the two slots as files in a state directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("session: create state dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) userPath() string  { return filepath.Join(s.dir, userFileName) }
func (s *FileStore) tokenPath() string { return filepath.Join(s.dir, tokenFileName) }

// Save writes the user slot first and the token slot second. When the second
// write fails the first is removed again, so a later Load never observes a
// half-written record.
func (s *FileStore) Save(userJSON []byte, token string) error {
	if err := os.WriteFile(s.userPath(), userJSON, 0o600); err != nil {
		return fmt.Errorf("session: write user slot: %w", err)
	}

	if err := os.WriteFile(s.tokenPath(), []byte(token), 0o600); err != nil {
		os.Remove(s.userPath())
		return fmt.Errorf("session: write token slot: %w", err)
	}

	return nil
}

// Load reads both slots. An empty token file counts as a missing token slot.
func (s *FileStore) Load() ([]byte, string, error) {
	userJSON, userErr := os.ReadFile(s.userPath())
	if userErr != nil && !errors.Is(userErr, os.ErrNotExist) {
		return nil, "", fmt.Errorf("session: read user slot: %w", userErr)
	}

	tokenBytes, tokenErr := os.ReadFile(s.tokenPath())
	if tokenErr != nil && !errors.Is(tokenErr, os.ErrNotExist) {
		return nil, "", fmt.Errorf("session: read token slot: %w", tokenErr)
	}

	userMissing := userErr != nil
	tokenMissing := tokenErr != nil || len(tokenBytes) == 0

	switch {
	case userMissing && tokenMissing:
		return nil, "", ErrNoSession
	case userMissing || tokenMissing:
		return nil, "", ErrPartialSession
	}

	return userJSON, string(tokenBytes), nil
}

// Clear removes both slots. Missing files are ignored.
func (s *FileStore) Clear() error {
	var firstErr error
	for _, path := range []string{s.userPath(), s.tokenPath()} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			if firstErr == nil {
				firstErr = fmt.Errorf("session: clear slot %s: %w", filepath.Base(path), err)
			}
		}
	}
	return firstErr
}
