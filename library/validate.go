package library

import (
	"regexp"
	"strings"
)

const isbnDigits = 13

var (
	// Digit groups separated by single hyphens.
	isbnPattern  = regexp.MustCompile(`^[0-9]+(-[0-9]+)*$`)
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
)

// ValidateISBN reports whether s is a 13 digit ISBN, optionally hyphenated.
// The check digit is not verified.
func ValidateISBN(s string) bool {
	s = strings.TrimSpace(s)
	if !isbnPattern.MatchString(s) {
		return false
	}
	return len(NormalizeISBN(s)) == isbnDigits
}

// NormalizeISBN strips surrounding space and hyphens so that "978-0-00-000000-1"
// and "9780000000001" key the same book.
func NormalizeISBN(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "-", "")
}

// ValidateEmail reports whether s looks like local@domain.tld.
func ValidateEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}
