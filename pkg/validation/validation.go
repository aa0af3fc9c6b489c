package validation

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	ErrPhoneEmpty   = errors.New("phone number cannot be empty")
	ErrPhoneInvalid = errors.New("phone number is not a valid international number")
)

// DigitsOnly drops every character that is not an ASCII digit.
func DigitsOnly(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone extracts the digits of raw, validates them as an
// international number and returns the E.164 form without the leading "+".
func NormalizePhone(raw string) (string, error) {
	digits := DigitsOnly(raw)
	if digits == "" {
		return "", ErrPhoneEmpty
	}

	parsed, err := phonenumbers.Parse("+"+digits, "")
	if err != nil {
		return "", ErrPhoneInvalid
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", ErrPhoneInvalid
	}

	return strings.TrimPrefix(phonenumbers.Format(parsed, phonenumbers.E164), "+"), nil
}
