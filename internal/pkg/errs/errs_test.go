package errs

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorLooksUpTemplate(t *testing.T) {
	customErr := NewError(ErrMissingCredentials)
	require.NotNil(t, customErr)
	assert.Equal(t, ErrMissingCredentials, customErr.Code)
	assert.Equal(t, "Please enter both email and password.", customErr.Message)
	assert.Equal(t, http.StatusBadRequest, customErr.Status)
}

func TestNewErrorFormatsTemplateDetails(t *testing.T) {
	customErr := NewError(ErrBadStatus, 502)
	assert.Equal(t, "Request failed with status 502.", customErr.Message)
}

func TestNewErrorUnknownCodeFallsBack(t *testing.T) {
	customErr := NewError(99999)
	assert.Equal(t, ErrUnknown, customErr.Code)
}

func TestNewErrorReturnsDistinctInstances(t *testing.T) {
	first := NewError(ErrPostNotFound)
	second := NewError(ErrPostNotFound)
	first.Message = "changed"
	assert.Equal(t, "Post not found.", second.Message)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	customErr := Wrap(cause, ErrNetworkUnreachable)
	assert.ErrorIs(t, customErr, cause)
	assert.Equal(t, ErrNetworkUnreachable, customErr.Code)
}

func TestWithMessageOverridesTemplate(t *testing.T) {
	customErr := WithMessage(ErrRequestFailed, "Title is required.")
	assert.Equal(t, ErrRequestFailed, customErr.Code)
	assert.Equal(t, "Title is required.", customErr.Message)

	// An empty backend message keeps the template text.
	fallback := WithMessage(ErrRequestFailed, "")
	assert.NotEmpty(t, fallback.Message)
}

func TestKindPredicatesClassifyByCodeRange(t *testing.T) {
	cases := []struct {
		name       string
		code       int
		validation bool
		transport  bool
		auth       bool
		channel    bool
	}{
		{"validation", ErrMissingCredentials, true, false, false, false},
		{"transport", ErrNetworkUnreachable, false, true, false, false},
		{"auth", ErrSessionExpired, false, false, true, false},
		{"channel", ErrChannelClosed, false, false, false, true},
		{"internal", ErrUnknown, false, false, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			customErr := NewError(tc.code)
			assert.Equal(t, tc.validation, IsValidation(customErr))
			assert.Equal(t, tc.transport, IsTransport(customErr))
			assert.Equal(t, tc.auth, IsAuth(customErr))
			assert.Equal(t, tc.channel, IsChannel(customErr))
		})
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := Wrap(errors.New("read tcp: reset"), ErrNetworkUnreachable)
	outer := &CustomError{Code: ErrUnknown, Message: "outer", Err: wrapped}

	// errors.As finds the outermost CustomError first.
	assert.False(t, IsTransport(outer))
	assert.True(t, IsTransport(wrapped))
	assert.False(t, IsTransport(errors.New("plain")))
}
