package payout

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidPhone means the phone number could not be reduced to the
// 10-digit form the disbursement provider expects.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone reduces a customer-entered phone number to the bare
// 10-digit form: all non-digits stripped, a leading 91 country code dropped
// from 12-digit numbers, and anything longer than 10 digits truncated to the
// last 10.
func NormalizePhone(input string) (string, error) {
	var b strings.Builder
	for _, r := range input {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	case len(digits) > 10:
		digits = digits[len(digits)-10:]
	}

	if len(digits) != 10 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}
