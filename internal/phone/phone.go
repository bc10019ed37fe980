// Package phone canonicalizes user-entered phone numbers into lookup keys.
package phone

import "strings"

// DefaultCountryCode is prefixed to bare 10-digit national numbers.
const DefaultCountryCode = "91"

// MinKeyLength is the shortest normalized key accepted for a verification request.
const MinKeyLength = 10

// Normalize canonicalizes raw using DefaultCountryCode.
func Normalize(raw string) string {
	return NormalizeWithCountry(raw, DefaultCountryCode)
}

// NormalizeWithCountry canonicalizes raw into a "+"-prefixed key. Input that
// already starts with "+" keeps its digits and plus signs only. Otherwise a
// 10-digit number is treated as national and gets countryCode prepended; any
// other digit count, including none, is returned as "+<digits>". Empty input
// yields "".
func NormalizeWithCountry(raw, countryCode string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "+") {
		return keep(s, func(r rune) bool { return isDigit(r) || r == '+' })
	}
	digits := keep(s, isDigit)
	if len(digits) == 10 {
		return "+" + strings.TrimPrefix(countryCode, "+") + digits
	}
	return "+" + digits
}

// Valid reports whether key is long enough to be accepted.
func Valid(key string) bool {
	return key != "" && len(key) >= MinKeyLength
}

// Digits strips everything but digits, the format some gateways expect.
func Digits(key string) string {
	return keep(key, isDigit)
}

func keep(s string, ok func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if ok(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
