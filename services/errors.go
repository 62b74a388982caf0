package services

import (
	"errors"
	"fmt"

	"github.com/dcode-github/rental_marketplace/backend/repository"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrDependency         = errors.New("dependency failure")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotOwner is a conflict: the caller acts on an entity it does not own.
	ErrNotOwner = fmt.Errorf("%w: not authorized", ErrConflict)
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflictError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// storeError maps repository failures onto the service taxonomy.
func storeError(entity string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, entity)
	case errors.Is(err, repository.ErrDuplicateKey):
		return fmt.Errorf("%w: %s already exists", ErrConflict, entity)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound):
		return err
	default:
		return fmt.Errorf("%w: %s: %v", ErrDependency, entity, err)
	}
}
