// Package normalize canonicalizes the user-typed strings that end up as
// lookup keys: buyer and admin emails, enum-like tokens, currency codes and
// verification codes.
package normalize

import (
	"strings"
	"unicode"
)

// Email trims and lowercases an address. Orders and users are keyed on the
// result, so every read and write path must go through it.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name. Case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Token trims and lowercases an enum-like value such as a role, a user
// status, an auth method or an order status filter.
func Token(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Currency upper-cases an ISO 4217 code.
func Currency(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Code strips every whitespace rune from a verification code, so "123 456"
// pasted from an email matches "123456".
func Code(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
