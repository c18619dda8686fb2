package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLength indicates the local form is not 11 digits
	ErrInvalidLength = errors.New("phone number must be 11 digits")

	// ErrInvalidPrefix indicates the number doesn't carry a Nigerian mobile prefix
	ErrInvalidPrefix = errors.New("phone number must start with 070, 080, 081, 090 or 091")

	// ErrInvalidFormat indicates the number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrEmptyPhone indicates the number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")
)

// validPrefixes covers the Nigerian mobile numbering ranges in local form
var validPrefixes = []string{
	"070",
	"080",
	"081",
	"090",
	"091",
}

// phoneRegex matches digits only
var phoneRegex = regexp.MustCompile(`^\d+$`)

// PhoneValidator handles phone number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate validates a Nigerian mobile number.
// Accepts 08012345678, 0801 234 5678, 0801-234-5678 or +2348012345678 and
// returns the sanitized local form (11 digits, leading zero).
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if phone == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	// International form: 234 country code replaces the leading zero
	if strings.HasPrefix(sanitized, "234") && len(sanitized) == 13 {
		sanitized = "0" + sanitized[3:]
	}

	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) != 11 {
		return "", ErrInvalidLength
	}

	if !v.IsValidPrefix(sanitized) {
		return "", ErrInvalidPrefix
	}

	return sanitized, nil
}

// Sanitize removes spaces, dashes, dots, parentheses and a leading plus
func (v *PhoneValidator) Sanitize(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "", "+", "")
	return replacer.Replace(strings.TrimSpace(phone))
}

// IsValidPrefix reports whether the sanitized local form starts with a known
// mobile range
func (v *PhoneValidator) IsValidPrefix(phone string) bool {
	for _, prefix := range validPrefixes {
		if strings.HasPrefix(phone, prefix) {
			return true
		}
	}
	return false
}
