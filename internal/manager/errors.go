package manager

import (
	"errors"
	"net/http"

	"imaged/internal/resolver"
)

// jobNotFoundError is returned for unknown and evicted job ids alike.
type jobNotFoundError struct{ id string }

func (e jobNotFoundError) Error() string   { return "job not found: " + e.id }
func (e jobNotFoundError) StatusCode() int { return http.StatusNotFound }

// ErrJobNotFound constructs a jobNotFoundError.
func ErrJobNotFound(id string) error { return jobNotFoundError{id: id} }

// IsJobNotFound reports whether err indicates a missing job id.
func IsJobNotFound(err error) bool {
	var e jobNotFoundError
	return errors.As(err, &e)
}

// engineNotReadyError signals that the backend is not initialized so the
// HTTP layer can return 503.
type engineNotReadyError struct{ msg string }

func (e engineNotReadyError) Error() string   { return e.msg }
func (e engineNotReadyError) StatusCode() int { return http.StatusServiceUnavailable }

// ErrEngineNotReady is returned while the backend is not ready or the
// manager is shutting down.
var ErrEngineNotReady error = engineNotReadyError{msg: "inference engine not initialized"}

var errShuttingDown error = engineNotReadyError{msg: "server is shutting down"}

// IsEngineNotReady reports whether err indicates the backend cannot take work.
func IsEngineNotReady(err error) bool {
	var e engineNotReadyError
	return errors.As(err, &e)
}

// validationError rejects a malformed request with 400.
type validationError struct{ msg string }

func (e validationError) Error() string   { return e.msg }
func (e validationError) StatusCode() int { return http.StatusBadRequest }

func invalid(msg string) error { return validationError{msg: msg} }

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var e validationError
	return errors.As(err, &e)
}

// IsModelResolutionFailed reports whether err came from exhausting every
// load strategy for a model reference.
func IsModelResolutionFailed(err error) bool { return resolver.IsResolutionFailed(err) }
