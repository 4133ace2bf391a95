// Package normalize provides utilities for normalizing and sanitizing catalog text.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Text prepares a name, title or username for validation, storage and comparison.
//
// The value is converted to Unicode NFC, null bytes and control characters are
// dropped, runs of whitespace collapse to a single space, and the result is trimmed.
// "  Frank\tHerbert " -> "Frank Herbert".
// "Café" -> "Café" (single code point).
func Text(raw string) string {
	if raw == "" {
		return ""
	}

	s := norm.NFC.String(raw)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case r == 0 || unicode.IsControl(r):
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Genres normalizes each genre with Text and drops empty values and repeats,
// keeping the first occurrence order. Comparison stays case-sensitive.
func Genres(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, g := range raw {
		g = Text(g)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// Optional applies Text to an optional argument. Nil and blank inputs return nil.
func Optional(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := Text(*raw)
	if s == "" {
		return nil
	}
	return &s
}
