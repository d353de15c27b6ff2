package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can decide how to recover
type Kind int

const (
	// KindValidation is a local input problem caught before any request
	KindValidation Kind = iota + 1
	// KindAuthRequired means there is no usable session for the call
	KindAuthRequired
	// KindServerRejected is a 4xx business or validation failure
	KindServerRejected
	// KindServerFault is a 5xx response or a transport failure
	KindServerFault
	// KindTimeout means the request did not finish in time
	KindTimeout
	// KindCanceled means the caller abandoned the request
	KindCanceled
	// KindPartialCommit means a booking was created but its payment proof was not recorded
	KindPartialCommit
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthRequired:
		return "auth_required"
	case KindServerRejected:
		return "server_rejected"
	case KindServerFault:
		return "server_fault"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	case KindPartialCommit:
		return "partial_commit"
	}
	return "unknown"
}

// GenericFailureMessage is shown when the server gave no message of its own
const GenericFailureMessage = "Something went wrong. Please try again."

// Error is the single error type returned by the client and the flows built on it
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError returns a local validation failure
func ValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// AuthRequiredError returns the failure used when no token is present
func AuthRequiredError() *Error {
	return &Error{Kind: KindAuthRequired, Status: http.StatusUnauthorized, Message: "Please log in to continue"}
}

// KindOf returns the kind of err, or 0 when err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage returns the text to show for err. Server and validation
// messages are passed through verbatim; faults fall back to fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if fallback == "" {
		fallback = GenericFailureMessage
	}

	var e *Error
	if !errors.As(err, &e) {
		return fallback
	}
	switch e.Kind {
	case KindTimeout:
		return "The request timed out. Please try again."
	case KindCanceled:
		return "The request was cancelled."
	case KindServerFault:
		if e.Status == 0 || e.Message == "" {
			return fallback
		}
	}
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

// authCodes are the error codes the auth middleware answers with. Any other
// 401/403 is a business rejection such as a wrong current password.
var authCodes = map[string]bool{
	"":                         true,
	"MISSING_AUTH_HEADER":      true,
	"INVALID_AUTH_FORMAT":      true,
	"TOKEN_EXPIRED":            true,
	"INVALID_TOKEN":            true,
	"MISSING_USER_CONTEXT":     true,
	"INSUFFICIENT_PERMISSIONS": true,
	"ACCOUNT_NOT_FOUND":        true,
	"ROLE_CHANGED":             true,
}

func kindForStatus(status int, code string) Kind {
	switch {
	case (status == http.StatusUnauthorized || status == http.StatusForbidden) && authCodes[code]:
		return KindAuthRequired
	case status >= 500:
		return KindServerFault
	case status >= 400:
		return KindServerRejected
	}
	return KindServerFault
}
