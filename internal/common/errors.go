package common

import (
	"errors"
	"net/http"
)

// Kind classifies failures so the HTTP boundary can pick a status range.
type Kind int

const (
	// KindInternal is an unexpected fault (server-error range).
	KindInternal Kind = iota
	// KindValidation is a malformed or incomplete client request.
	KindValidation
	// KindConfiguration is a deployment problem such as a missing credential.
	KindConfiguration
	// KindProvider is a business failure reported by the payment provider.
	KindProvider
	// KindTransport is a network, timeout or decoding failure talking to a dependency.
	KindTransport
)

// AppError represents an error with an attached kind and optional HTTP status override.
type AppError struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Err        error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Status maps the error kind onto an HTTP status code.
func (e *AppError) Status() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	switch e.Kind {
	case KindValidation, KindProvider:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewAppError constructs an AppError.
func NewAppError(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// AsAppError extracts an AppError from the chain.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	if errors.As(err, &target) && target != nil {
		return target, true
	}
	return nil, false
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}
