package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidCredentials is the single verification failure. Unknown email and
// wrong password both map here so callers cannot tell them apart.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ValidationError carries the full set of field-level problems found during
// registration input validation. It maps field name to message and is
// deterministic for a given input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

// ConflictError reports a uniqueness violation on a specific field, whether
// caught by the pre-check or by the store's unique constraint at insert time.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already registered", e.Field)
}

// AsValidation unwraps err to a *ValidationError if it is one
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsConflict unwraps err to a *ConflictError if it is one
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
