// Package phone normalizes phone numbers into the digits-only international
// form used as the guest key everywhere in the system.
package phone

import "strings"

// DefaultCountryCode is used when callers pass an empty country code.
const DefaultCountryCode = "972"

// Normalize converts a local number, an international number or a chat
// address ("972501234567@s.whatsapp.net", "972501234567:12@...") into the
// canonical key. It returns "" when raw contains no digits.
//
//	0501234567        -> 972501234567
//	+972-50-123-4567  -> 972501234567
//	9720501234567     -> 972501234567
//	00972501234567    -> 972501234567
func Normalize(raw, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	if i := strings.IndexByte(raw, '@'); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		raw = raw[:i]
	}

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	digits = strings.TrimPrefix(digits, "00")

	switch {
	case strings.HasPrefix(digits, countryCode+"0"):
		return countryCode + digits[len(countryCode)+1:]
	case strings.HasPrefix(digits, countryCode):
		return digits
	case strings.HasPrefix(digits, "0"):
		return countryCode + digits[1:]
	default:
		return countryCode + digits
	}
}
