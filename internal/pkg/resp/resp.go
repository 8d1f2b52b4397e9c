/*
Package resp provides helper functions for constructing and sending standardized HTTP JSON responses.

The envelope is the blog backend contract: {status, message, data?}, where status
equal to the success sentinel signals success and anything else is a failure to be
surfaced to the user.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"miniblog/internal/pkg/errs"
	"miniblog/internal/pkg/logx"
)

const (
	// StatusSuccess is the sentinel value of the envelope status field on success.
	StatusSuccess = "Success"

	// StatusError is the envelope status field value on failure.
	StatusError = "Error"
)

// Envelope defines the standardized JSON response structure returned to clients.
type Envelope struct {
	// Status is the sentinel: StatusSuccess on success, StatusError otherwise.
	Status string `json:"status"`

	// Message is the client-friendly status description or error message.
	Message string `json:"message"`

	// Data is the optional response payload.
	Data json.RawMessage `json:"data,omitempty"`
}

// RespondJSON is a generic response function used to set the Content-Type and send the JSON payload.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(response)
}

// RespondSuccess sends a successful HTTP response (HTTP 200 OK) wrapping data in the envelope.
func RespondSuccess(w http.ResponseWriter, r *http.Request, message string, data any) {
	if message == "" {
		message = "success"
	}

	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			logx.Error(err, "Error encoding response data")
			http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
			return
		}
		raw = encoded
	}

	res := Envelope{
		Status:  StatusSuccess,
		Message: message,
		Data:    raw,
	}
	RespondJSON(w, r, http.StatusOK, res)
}

// RespondError sends an HTTP response containing custom error information.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	res := Envelope{
		Status:  StatusError,
		Message: customErr.Message,
	}
	RespondJSON(w, r, customErr.Status, res)
}
