package utils

import (
	"regexp"
	"strings"
)

// countryPrefix is the international dialing prefix subscribers are
// normalized to before any outbound SMS or payment call.
const countryPrefix = "254"

var (
	nonDigits    = regexp.MustCompile(`\D`)
	phonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)
)

// NormalizePhone converts a subscriber number to international format.
// All non-digit characters are stripped; a leading trunk zero is replaced
// with the country prefix. Already-international numbers pass through.
func NormalizePhone(phone string) string {
	digits := nonDigits.ReplaceAllString(phone, "")
	if strings.HasPrefix(digits, countryPrefix) {
		return digits
	}
	if strings.HasPrefix(digits, "0") {
		return countryPrefix + digits[1:]
	}
	return digits
}

// IsValidPhone reports whether a raw phone number looks dialable: an
// optional leading + followed by 10 to 15 digits.
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
