/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and user-facing messages.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: Validation Errors
	ErrMissingCredentials:    {Code: ErrMissingCredentials, Message: "Please enter both email and password.", Status: http.StatusBadRequest},
	ErrMissingRequiredFields: {Code: ErrMissingRequiredFields, Message: "Please fill in all required fields.", Status: http.StatusBadRequest},
	ErrPasswordMismatch:      {Code: ErrPasswordMismatch, Message: "Please make sure your passwords match.", Status: http.StatusBadRequest},
	ErrOperationInFlight:     {Code: ErrOperationInFlight, Message: "Another sign-in attempt is already in progress.", Status: http.StatusConflict},
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Message: "Failed to process uploaded data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrExtraContent:          {Code: ErrExtraContent, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},

	// 2xxx: Transport and Content Errors
	ErrNetworkUnreachable: {Code: ErrNetworkUnreachable, Message: "Could not reach the server. Please check your connection."},
	ErrBadStatus:          {Code: ErrBadStatus, Message: "Request failed with status %d."},
	ErrMalformedResponse:  {Code: ErrMalformedResponse, Message: "The server returned an unexpected response."},
	ErrRequestFailed:      {Code: ErrRequestFailed, Message: "Request failed."},
	ErrRateLimitExceeded:  {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrPostNotFound:       {Code: ErrPostNotFound, Message: "Post not found.", Status: http.StatusNotFound},
	ErrCategoryInvalid:    {Code: ErrCategoryInvalid, Message: "One or more selected categories do not exist.", Status: http.StatusBadRequest},

	// 3xxx: Authentication Errors
	ErrAuthRequired:       {Code: ErrAuthRequired, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect email or password.", Status: http.StatusUnauthorized},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "That email or username is already taken.", Status: http.StatusConflict},
	ErrSessionExpired:     {Code: ErrSessionExpired, Message: "Your session has expired. Please sign in again.", Status: http.StatusUnauthorized},
	ErrNotPostAuthor:      {Code: ErrNotPostAuthor, Message: "You can only delete your own posts.", Status: http.StatusForbidden},

	// 4xxx: Push Channel Errors
	ErrChannelUnavailable: {Code: ErrChannelUnavailable, Message: "Could not connect to real-time updates."},
	ErrChannelClosed:      {Code: ErrChannelClosed, Message: "Real-time updates disconnected."},
	ErrChannelSendFailed:  {Code: ErrChannelSendFailed, Message: "Could not send over the live channel."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
