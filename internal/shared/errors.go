package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller lacks the required authority or ownership.
	ErrForbidden = errors.New("forbidden")
	// ErrConflictingState indicates the operation is invalid for the current state.
	ErrConflictingState = errors.New("conflicting state")
	// ErrInvalidArgument indicates the payload violates a value constraint.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthenticated indicates no caller could be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInternal marks storage or infrastructure faults.
	ErrInternal = errors.New("internal error")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

var taxonomy = []error{
	ErrNotFound,
	ErrForbidden,
	ErrConflictingState,
	ErrInvalidArgument,
	ErrUnauthenticated,
	ErrInvalidCredentials,
	ErrInternal,
}

// Internal wraps err as ErrInternal unless it already belongs to the error taxonomy.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range taxonomy {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}

// IsInternal reports whether err should be hidden from callers.
func IsInternal(err error) bool {
	if err == nil {
		return false
	}
	for _, kind := range taxonomy[:len(taxonomy)-1] {
		if errors.Is(err, kind) {
			return false
		}
	}
	return true
}
