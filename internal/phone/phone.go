// Package phone canonicalizes raw phone numbers into a comparable form.
//
// Every number entering the system (incoming calls, user reports, whitelist
// entries) passes through Normalize first, so the cache tiers and provider
// lookups always compare like with like. Normalization never fails: malformed
// input degrades to a best-effort canonical form because downstream lookups
// must not block on validation.
package phone

import "strings"

// DefaultCountryCode is used when no Normalizer is configured explicitly.
const DefaultCountryCode = "+27"

// Normalizer canonicalizes raw numbers using a configured default country code.
type Normalizer struct {
	countryCode string
}

// NewNormalizer creates a normalizer. countryCode should include the leading
// "+" (e.g. "+27"); a bare dial code is accepted and prefixed.
func NewNormalizer(countryCode string) *Normalizer {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	if !strings.HasPrefix(countryCode, "+") {
		countryCode = "+" + countryCode
	}
	return &Normalizer{countryCode: countryCode}
}

// Normalize strips everything except digits and a leading "+", replaces a
// leading national "0" with the default country code, and prepends "+" when
// missing. Idempotent: Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + len(n.countryCode))

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '+' && b.Len() == 0:
			b.WriteByte(c)
		}
	}

	s := b.String()
	if s == "" || s == "+" {
		return s
	}

	if strings.HasPrefix(s, "0") {
		return n.countryCode + s[1:]
	}
	if !strings.HasPrefix(s, "+") {
		return "+" + s
	}
	return s
}
