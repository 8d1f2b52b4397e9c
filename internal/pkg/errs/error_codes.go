/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific failures both inside the
client core and in responses produced by the development backend. The thousands
digit carries the error kind: 1xxx validation, 2xxx transport/content, 3xxx auth,
4xxx push channel, 5xxx internal.
*/
package errs

// 1xxx: Validation Errors (local, checked before any network call)
const (
	// ErrMissingCredentials indicates that email or password was left empty on login.
	ErrMissingCredentials = 1001

	// ErrMissingRequiredFields indicates that a required signup field was left empty.
	ErrMissingRequiredFields = 1002

	// ErrPasswordMismatch indicates that password and its confirmation differ.
	ErrPasswordMismatch = 1003

	// ErrOperationInFlight indicates a login/signup was attempted while another is pending.
	ErrOperationInFlight = 1004

	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1005

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1006

	// ErrInvalidJSONFormat indicates that the request body JSON is malformed.
	ErrInvalidJSONFormat = 1007

	// ErrFormParseFailed indicates failure to parse multipart or URL-encoded form data.
	ErrFormParseFailed = 1008

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the limit.
	ErrRequestEntityTooLarge = 1009

	// ErrExtraContent indicates that the request body contained extra content after valid JSON data.
	ErrExtraContent = 1010
)

// 2xxx: Transport and Content Errors
const (
	// ErrNetworkUnreachable indicates the request never produced an HTTP response.
	ErrNetworkUnreachable = 2001

	// ErrBadStatus indicates a non-2xx HTTP response without a parseable envelope.
	ErrBadStatus = 2002

	// ErrMalformedResponse indicates a response that does not match the expected envelope shape.
	ErrMalformedResponse = 2003

	// ErrRequestFailed carries a failure message extracted from the response envelope.
	ErrRequestFailed = 2004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 2005

	// ErrPostNotFound indicates that the requested post does not exist.
	ErrPostNotFound = 2101

	// ErrCategoryInvalid indicates that a referenced category id does not exist.
	ErrCategoryInvalid = 2102
)

// 3xxx: Authentication Errors
const (
	// ErrAuthRequired indicates an authenticated action was attempted with no credential held.
	ErrAuthRequired = 3001

	// ErrInvalidCredentials indicates a rejected email/password pair.
	ErrInvalidCredentials = 3002

	// ErrUserAlreadyExists indicates the signup email or username is already taken.
	ErrUserAlreadyExists = 3003

	// ErrSessionExpired indicates the backend rejected a previously valid credential.
	ErrSessionExpired = 3004

	// ErrNotPostAuthor indicates an attempt to delete a post owned by another user.
	ErrNotPostAuthor = 3005
)

// 4xxx: Push Channel Errors
const (
	// ErrChannelUnavailable indicates the push channel could not be established.
	ErrChannelUnavailable = 4001

	// ErrChannelClosed indicates the push channel closed unexpectedly.
	ErrChannelClosed = 4002

	// ErrChannelSendFailed indicates a write on the push channel failed.
	ErrChannelSendFailed = 4003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000
)
