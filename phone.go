package auth

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used for numbers given without a country prefix
var DefaultPhoneRegion = "US"

// ErrInvalidPhone is returned for numbers that do not parse or validate
var ErrInvalidPhone = NewValidationError("Invalid phone number.", nil)

// NormalizePhone returns the E.164 form of raw. Empty input stays empty.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil {
		return "", withMeta(ErrInvalidPhone, map[string]any{"phone": raw, "cause": err.Error()})
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", withMeta(ErrInvalidPhone, map[string]any{"phone": raw})
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
