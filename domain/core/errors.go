package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrModelNotFound    = fmt.Errorf("%w: model", ErrNotFound)
	ErrPairNotFound     = fmt.Errorf("%w: pair", ErrNotFound)
	ErrStanDataNotFound = fmt.Errorf("%w: stan data", ErrNotFound)
	ErrStanCodeNotFound = fmt.Errorf("%w: stan code", ErrNotFound)

	// Validation errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrUnsupportedFormat    = errors.New("unsupported input format")
	ErrUnknownBackend       = errors.New("unknown stats backend")
	ErrEmptyArchive         = errors.New("archive payload must be a non-empty list of chains")
)

// InsufficientChainsError reports fewer chains than the diagnostics policy
// requires. Required carries the policy minimum, Actual the supplied count.
type InsufficientChainsError struct {
	Required int
	Actual   int
}

func (e *InsufficientChainsError) Error() string {
	return fmt.Sprintf("diagnostics require at least %d chains; got %d chain(s)", e.Required, e.Actual)
}

// QualityCheckFailure reports the named quality checks that evaluated false.
type QualityCheckFailure struct {
	Failures []string
}

func (e *QualityCheckFailure) Error() string {
	failed := append([]string(nil), e.Failures...)
	sort.Strings(failed)
	return fmt.Sprintf("quality checks failed: %s", strings.Join(failed, ", "))
}

// Error constructors with context
func NewNotFoundError(resource string, model string) error {
	return fmt.Errorf("%w: %s for model %s", ErrNotFound, resource, model)
}

func NewInvalidConfigurationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfiguration, field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInsufficientChains(err error) bool {
	var ice *InsufficientChainsError
	return errors.As(err, &ice)
}

func IsQualityCheckFailure(err error) bool {
	var qcf *QualityCheckFailure
	return errors.As(err, &qcf)
}
