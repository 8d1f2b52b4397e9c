package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"miniblog/internal/app/blog"
	"miniblog/internal/pkg/errs"
)

// authSuccessBody is the canonical success envelope for the auth endpoints.
func authSuccessBody(userID, token string) string {
	return fmt.Sprintf(`{
		"status": "Success",
		"message": "ok",
		"data": {
			"userData": {"id": %q, "firstName": "Ada", "lastName": "Lovelace", "username": "ada", "email": "ada@example.com"},
			"token": %q
		}
	}`, userID, token)
}

type testBackend struct {
	server   *httptest.Server
	requests atomic.Int64
	handler  func(w http.ResponseWriter, r *http.Request)
}

func newTestBackend(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *testBackend {
	t.Helper()
	b := &testBackend{handler: handler}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		b.handler(w, r)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func newTestSession(t *testing.T, baseURL string) (*Session, *FileStore) {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	api := blog.NewClient(baseURL, 5*time.Second)
	return New(api, store), store
}

func TestLoginValidationSkipsNetwork(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the network")
	})
	sess, _ := newTestSession(t, backend.server.URL)

	for _, creds := range [][2]string{{"", "x"}, {"x", ""}, {"", ""}} {
		customErr := sess.Login(context.Background(), creds[0], creds[1])
		require.NotNil(t, customErr)
		require.True(t, errs.IsValidation(customErr), "want validation error, got code %d", customErr.Code)
	}

	require.Equal(t, int64(0), backend.requests.Load())
	require.Equal(t, Unauthenticated, sess.Status())
}

func TestLoginSuccessPersistsAndRestores(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		fmt.Fprint(w, authSuccessBody("1", "abc"))
	})
	sess, store := newTestSession(t, backend.server.URL)

	require.Nil(t, sess.Login(context.Background(), "ada@example.com", "secret"))
	require.Equal(t, Authenticated, sess.Status())

	token, customErr := sess.Token()
	require.Nil(t, customErr)
	require.Equal(t, "abc", token)

	user, ok := sess.CurrentUser()
	require.True(t, ok)
	require.Equal(t, "1", user.ID)

	// Both slots must be on disk.
	userJSON, storedToken, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "abc", storedToken)
	var persisted blog.User
	require.NoError(t, json.Unmarshal(userJSON, &persisted))
	require.Equal(t, "1", persisted.ID)

	// Simulated reload: a fresh session over the same store restores the
	// same authenticated state without touching the network.
	before := backend.requests.Load()
	fresh := New(blog.NewClient(backend.server.URL, 5*time.Second), store)
	fresh.Restore()
	require.Equal(t, Authenticated, fresh.Status())
	freshUser, _ := fresh.CurrentUser()
	require.Equal(t, "1", freshUser.ID)
	require.Equal(t, before, backend.requests.Load())
}

func TestLoginFailureLeavesStateUntouched(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"Error","message":"Incorrect email or password."}`)
	})
	sess, store := newTestSession(t, backend.server.URL)

	customErr := sess.Login(context.Background(), "ada@example.com", "wrong")
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrInvalidCredentials, customErr.Code)
	require.Equal(t, "Incorrect email or password.", customErr.Message)

	require.Equal(t, Unauthenticated, sess.Status())
	_, _, err := store.Load()
	require.ErrorIs(t, err, ErrNoSession)
}

func TestLoginRejectsVariantEnvelopeShape(t *testing.T) {
	// data.user instead of the canonical data.userData: rejected, not
	// silently supported.
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"Success","message":"ok","data":{"user":{"id":"1"},"token":"abc"}}`)
	})
	sess, store := newTestSession(t, backend.server.URL)

	customErr := sess.Login(context.Background(), "ada@example.com", "secret")
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrMalformedResponse, customErr.Code)

	require.Equal(t, Unauthenticated, sess.Status())
	_, _, err := store.Load()
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSignupValidationSkipsNetwork(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the network")
	})
	sess, _ := newTestSession(t, backend.server.URL)

	// Password confirmation mismatch fails regardless of other field validity.
	customErr := sess.Signup(context.Background(), blog.SignupInput{
		Username:        "ada",
		Email:           "ada@example.com",
		Password:        "a",
		ConfirmPassword: "b",
	})
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrPasswordMismatch, customErr.Code)

	// Missing required fields.
	customErr = sess.Signup(context.Background(), blog.SignupInput{
		Email:           "ada@example.com",
		Password:        "a",
		ConfirmPassword: "a",
	})
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrMissingRequiredFields, customErr.Code)

	require.Equal(t, int64(0), backend.requests.Load())
}

func TestSignupSendsNamedMultipartParts(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))

		userParts := r.MultipartForm.Value[blog.SignupUserPart]
		require.Len(t, userParts, 1)

		var input blog.SignupInput
		require.NoError(t, json.Unmarshal([]byte(userParts[0]), &input))
		require.Equal(t, "ada", input.Username)
		require.Equal(t, "secret", input.Password)

		files := r.MultipartForm.File[blog.SignupImagePart]
		require.Len(t, files, 1)

		fmt.Fprint(w, authSuccessBody("7", "tok-7"))
	})
	sess, _ := newTestSession(t, backend.server.URL)

	customErr := sess.Signup(context.Background(), blog.SignupInput{
		Username:        "ada",
		Email:           "ada@example.com",
		Password:        "secret",
		ConfirmPassword: "secret",
		Image:           []byte{0x89, 0x50, 0x4e, 0x47},
		ImageName:       "avatar.png",
	})
	require.Nil(t, customErr)
	require.Equal(t, Authenticated, sess.Status())
}

func TestRestoreClearsCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.json"), []byte("{not json"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "token"), []byte("abc"), 0o600))

	api := blog.NewClient("http://127.0.0.1:0", time.Second)
	sess := New(api, store)

	sess.Restore()
	require.Equal(t, Unauthenticated, sess.Status())

	// The corrupt record is gone.
	_, _, loadErr := store.Load()
	require.ErrorIs(t, loadErr, ErrNoSession)
	_, statErr := os.Stat(filepath.Join(dir, "user.json"))
	require.True(t, os.IsNotExist(statErr))

	// Restoring again is a no-op.
	sess.Restore()
	require.Equal(t, Unauthenticated, sess.Status())
}

func TestRestoreClearsPartialRecord(t *testing.T) {
	userJSON, err := json.Marshal(blog.User{ID: "1", Username: "ada"})
	require.NoError(t, err)

	cases := []struct {
		name  string
		files map[string][]byte
	}{
		{"user slot only", map[string][]byte{"user.json": userJSON}},
		{"token slot only", map[string][]byte{"token": []byte("abc")}},
		{"empty token slot", map[string][]byte{"user.json": userJSON, "token": nil}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			store, err := NewFileStore(dir)
			require.NoError(t, err)
			for name, content := range tc.files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0o600))
			}

			sess := New(blog.NewClient("http://127.0.0.1:0", time.Second), store)
			sess.Restore()
			require.Equal(t, Unauthenticated, sess.Status())

			// The surviving slot is removed, not left behind.
			for name := range tc.files {
				_, statErr := os.Stat(filepath.Join(dir, name))
				require.True(t, os.IsNotExist(statErr), "%s should be gone", name)
			}
			_, _, loadErr := store.Load()
			require.ErrorIs(t, loadErr, ErrNoSession)
		})
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, authSuccessBody("1", "abc"))
	})
	sess, store := newTestSession(t, backend.server.URL)

	require.Nil(t, sess.Login(context.Background(), "ada@example.com", "secret"))
	require.Equal(t, Authenticated, sess.Status())

	sess.Logout()
	require.Equal(t, Unauthenticated, sess.Status())
	_, _, err := store.Load()
	require.ErrorIs(t, err, ErrNoSession)

	// Logging out when already Unauthenticated still succeeds and leaves
	// both slots absent.
	sess.Logout()
	require.Equal(t, Unauthenticated, sess.Status())
	_, _, err = store.Load()
	require.ErrorIs(t, err, ErrNoSession)

	_, tokenErr := sess.Token()
	require.NotNil(t, tokenErr)
	require.Equal(t, errs.ErrAuthRequired, tokenErr.Code)
}

func TestSecondLoginWhileInFlightIsRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		fmt.Fprint(w, authSuccessBody("1", "abc"))
	})
	sess, _ := newTestSession(t, backend.server.URL)

	firstDone := make(chan *errs.CustomError, 1)
	go func() {
		firstDone <- sess.Login(context.Background(), "ada@example.com", "secret")
	}()

	<-started
	require.Equal(t, Authenticating, sess.Status())

	second := sess.Login(context.Background(), "ada@example.com", "secret")
	require.NotNil(t, second)
	require.Equal(t, errs.ErrOperationInFlight, second.Code)

	close(release)
	require.Nil(t, <-firstDone)
	require.Equal(t, Authenticated, sess.Status())
	require.Equal(t, int64(1), backend.requests.Load())
}
