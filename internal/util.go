/* Copyright © 2025-2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package internal

import (
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
)

// ParseDateOrZero returns a parsed time or zero if input is empty or "null".
func ParseDateOrZero(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return time.Time{}, nil
	}
	return dateparse.ParseAny(s)
}

// ParseDateOr parses s, returning def when s is empty.
func ParseDateOr(s string, def time.Time) (time.Time, error) {
	t, err := ParseDateOrZero(s)
	if err != nil {
		return time.Time{}, err
	}
	if t.IsZero() {
		return def, nil
	}
	return t, nil
}

// NormalizeName collapses whitespace, reorders "LAST, FIRST" into
// "First Last" and title-cases names given entirely in upper case.
func NormalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if last, first, ok := strings.Cut(name, ","); ok {
		first = strings.TrimSpace(first)
		last = strings.TrimSpace(last)
		if first != "" && last != "" {
			name = first + " " + last
		} else {
			name = first + last
		}
	}
	if name != strings.ToUpper(name) {
		return name
	}

	words := strings.Fields(name)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	runes := []rune(strings.ToLower(w))
	upNext := true
	for i, r := range runes {
		if upNext && unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			upNext = false
		}
		if r == '-' || r == '\'' {
			upNext = true
		}
	}
	return string(runes)
}
