// Package validation provides centralized input validation logic.
//
// All transfer requests are validated synchronously, before any network call,
// so an invalid request never registers a destination component.
package validation

import (
	"strings"
	"unicode"

	"github.com/meridianworks/transfer/errors"
)

// ValidateName validates the display name registered for a component.
// The name is the only required caller input: without a derivable display
// name the destination resource cannot be registered.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewError("validateName", errors.ErrValidation).
			WithMessage("no display name could be derived for the transfer")
	}

	if len(name) > 1024 {
		return errors.NewError("validateName", errors.ErrValidation).
			WithMessage("display name cannot exceed 1024 characters")
	}

	if hasControlCharacters(name) {
		return errors.NewError("validateName", errors.ErrValidation).
			WithMessage("display name cannot contain control characters")
	}

	return nil
}

// ValidateSize validates the declared payload size.
func ValidateSize(size int64) error {
	if size < 0 {
		return errors.NewError("validateSize", errors.ErrValidation).
			WithMessage("declared size cannot be negative")
	}
	return nil
}

// ValidateComponentID validates a caller-supplied destination identifier.
// Empty is allowed; an identifier is generated in that case.
func ValidateComponentID(id string) error {
	if id == "" {
		return nil
	}

	if len(id) > 128 {
		return errors.NewError("validateComponentID", errors.ErrValidation).
			WithMessage("component id cannot exceed 128 characters")
	}

	for _, char := range id {
		if char < 33 || char > 126 {
			return errors.NewError("validateComponentID", errors.ErrValidation).
				WithMessage("component id can only contain printable ASCII characters without spaces")
		}
	}

	return nil
}

// hasControlCharacters checks for control characters in the value
func hasControlCharacters(value string) bool {
	for _, char := range value {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}
