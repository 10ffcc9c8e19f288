package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxNameLength        = 255
	MaxKindLength        = 64
	MaxDescriptionLength = 1024
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateID rejects identifiers that are not well-formed ULIDs. It runs
// before any store interaction.
func ValidateID(id string) error {
	if _, err := ulid.ParseStrict(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	return nil
}

// ValidateAccountInput validates the mutable account attributes. Both fields
// are required on create and on update.
func ValidateAccountInput(name, email string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrValidation, MaxNameLength)
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}

	if !emailRegex.MatchString(email) {
		return fmt.Errorf("%w: malformed email %q", ErrValidation, email)
	}

	return nil
}

// ParseAmount parses a signed decimal amount from its wire form. Anything
// that is not a finite signed number (garbage, NaN, Inf, empty) is rejected.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is required", ErrValidation)
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not a number", ErrValidation, raw)
	}

	return amount, nil
}

// ValidateKind validates an entry kind label. The label is descriptive only;
// the sign of the amount stays authoritative.
func ValidateKind(kind string) error {
	if strings.TrimSpace(kind) == "" {
		return fmt.Errorf("%w: kind is required", ErrValidation)
	}

	if len(kind) > MaxKindLength {
		return fmt.Errorf("%w: kind exceeds %d characters", ErrValidation, MaxKindLength)
	}

	return nil
}

// ValidateDescription bounds the optional free-text description.
func ValidateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLength)
	}

	return nil
}
