// Package phone canonicalizes gateway-encoded phone identifiers into a
// comparable digit form and produces the format variants used for matching
// against stored numbers.
package phone

import "strings"

// Normalize canonicalizes a raw phone/identifier string. Gateway routing
// suffixes (everything after the first '@') and device-session suffixes
// (everything after the first ':') are stripped before removing all
// non-digit characters. An input that yields no digits normalizes to the
// empty string; Normalize never fails and is idempotent.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	if idx := strings.IndexByte(raw, '@'); idx >= 0 {
		raw = raw[:idx]
	}
	if idx := strings.IndexByte(raw, ':'); idx >= 0 {
		raw = raw[:idx]
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}

// Variants returns the representations of a canonical number most relevant
// for database matching: the number as-is, the local leading-zero form
// (country code replaced by "0"), and the country-code form (leading "0"
// replaced by the country code). Duplicates are collapsed; an empty input
// yields no variants.
func Variants(canonical, countryCode string) []string {
	if canonical == "" {
		return nil
	}

	variants := []string{canonical}
	appendUnique := func(v string) {
		for _, existing := range variants {
			if existing == v {
				return
			}
		}
		variants = append(variants, v)
	}

	if countryCode != "" && strings.HasPrefix(canonical, countryCode) {
		appendUnique("0" + canonical[len(countryCode):])
	}
	if strings.HasPrefix(canonical, "0") && countryCode != "" {
		appendUnique(countryCode + canonical[1:])
	}
	return variants
}
