// Package apperr holds the error kinds shared by every layer. Callers match
// them with errors.Is; the HTTP layer maps each kind to a status code.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrValidation             = errors.New("validation error")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNotFound               = errors.New("not found")
	ErrUpstreamUnavailable    = errors.New("upstream unavailable")
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflict")

	// ErrProofAlreadySubmitted is the recoverable form of a lost race on the
	// pending -> proof_uploaded edge.
	ErrProofAlreadySubmitted = fmt.Errorf("proof already submitted: %w", ErrInvalidStateTransition)
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(what, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
}

func Transition(from, to string) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
}

// Upstream wraps a store or storage failure. Context cancellation and
// deadlines are reported the same way since the caller may retry both.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsKnown(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
}

// IsKnown reports whether err already carries one of the kinds above.
func IsKnown(err error) bool {
	for _, kind := range []error{
		ErrValidation, ErrInvalidStateTransition, ErrNotFound, ErrUpstreamUnavailable,
		ErrUnauthenticated, ErrForbidden, ErrConflict,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, context.DeadlineExceeded)
}
