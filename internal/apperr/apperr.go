// Package apperr holds the error kinds shared by the tender request core.
// Callers classify errors with errors.Is against the exported sentinels.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrInvariant      = errors.New("invariant violation")
	ErrConflict       = errors.New("conflict")
	ErrStaleVersion   = fmt.Errorf("%w: entity was modified concurrently", ErrConflict)
	ErrInfrastructure = errors.New("infrastructure error")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(entity string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, entity)
}

func Invariant(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvariant, msg)
}

func Conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

// Infrastructure wraps a storage failure. Errors that already carry a kind pass through.
func Infrastructure(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrInfrastructure, op, err)
}

// Classified reports whether err already belongs to one of the kinds above.
func Classified(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvariant) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInfrastructure)
}
