package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Load()
	require.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Save([]byte(`{"id":"1"}`), "tok"))

	userJSON, token, err := store.Load()
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"1"}`, string(userJSON))
	require.Equal(t, "tok", token)

	// A later Save overwrites both slots.
	require.NoError(t, store.Save([]byte(`{"id":"2"}`), "tok2"))
	userJSON, token, err = store.Load()
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"2"}`, string(userJSON))
	require.Equal(t, "tok2", token)

	require.NoError(t, store.Clear())
	_, _, err = store.Load()
	require.ErrorIs(t, err, ErrNoSession)

	// Clearing an already empty store is fine.
	require.NoError(t, store.Clear())
}

func TestFileStoreRejectsEmptyToken(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save([]byte(`{"id":"1"}`), ""))
	_, _, err = store.Load()
	require.ErrorIs(t, err, ErrPartialSession)
}

func TestFileStoreDistinguishesPartialFromEmpty(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.json"), []byte(`{"id":"1"}`), 0o600))
	_, _, err = store.Load()
	require.ErrorIs(t, err, ErrPartialSession)

	require.NoError(t, os.Remove(filepath.Join(dir, "user.json")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "token"), []byte("abc"), 0o600))
	_, _, err = store.Load()
	require.ErrorIs(t, err, ErrPartialSession)

	require.NoError(t, store.Clear())
	_, _, err = store.Load()
	require.ErrorIs(t, err, ErrNoSession)
}
