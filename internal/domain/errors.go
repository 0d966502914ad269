package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRecord indicates a submitted payload is not a JSON object.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrDuplicateProvider is reported when two providers share a name.
	ErrDuplicateProvider = errors.New("duplicate provider")
	// ErrUnknownProvider is reported when configuration names a provider nobody built.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrInvalidProvider covers empty names and nil providers.
	ErrInvalidProvider = errors.New("invalid provider")
	// ErrRegistrySealed is returned by Register once collection has started.
	ErrRegistrySealed = errors.New("provider registry is sealed")

	// ErrPrefNotFound is returned by preference stores for a missing key.
	ErrPrefNotFound = errors.New("preference not found")
	// ErrIdentityUnavailable marks a client id that could not be produced.
	ErrIdentityUnavailable = errors.New("client identity unavailable")

	// ErrStoreUnavailable is returned by profile stores that have nothing loaded.
	ErrStoreUnavailable = errors.New("profile store unavailable")

	// ErrNoDocument is returned by providers that need the form's document address.
	ErrNoDocument = errors.New("submission has no document uri")
	// ErrNoAction is returned by providers that need the form's action address.
	ErrNoAction = errors.New("submission has no action uri")

	// ErrAlreadyRegistered is returned when an observer is attached twice.
	ErrAlreadyRegistered = errors.New("observer already registered")
	// ErrNotRegistered is returned when detaching an observer that is not attached.
	ErrNotRegistered = errors.New("observer not registered")
)

// ConfigurationError is a fatal startup problem with the provider set.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
