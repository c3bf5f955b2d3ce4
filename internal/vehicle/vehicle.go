package vehicle

import (
	"errors"
	"strings"
	"unicode"
)

const (
	minLength = 2
	maxLength = 10
)

var (
	ErrTooShort  = errors.New("vehicle number too short")
	ErrTooLong   = errors.New("vehicle number too long")
	ErrWideSpace = errors.New("vehicle number contains consecutive spaces")
)

// Normalize strips all whitespace and uppercases the vehicle number.
// It never fails; validation is a separate step.
func Normalize(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Validate checks a normalized vehicle number. The original pre-normalized
// string is also required because the consecutive-space rule applies to what
// the customer actually typed, not to the normalized form.
func Validate(original, normalized string) error {
	if len(normalized) < minLength {
		return ErrTooShort
	}
	if len(normalized) > maxLength {
		return ErrTooLong
	}
	prevSpace := false
	for _, r := range original {
		if unicode.IsSpace(r) {
			if prevSpace {
				return ErrWideSpace
			}
			prevSpace = true
			continue
		}
		prevSpace = false
	}
	return nil
}

// Canonical normalizes and validates in one step, returning the canonical
// form used as the lookup key everywhere else in the system.
func Canonical(input string) (string, error) {
	normalized := Normalize(input)
	if err := Validate(input, normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
