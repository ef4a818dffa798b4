package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxUsernameLength is the longest username accepted, in characters
const MaxUsernameLength = 64

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// SanitizeEmail trims and lowercases an address so lookups are case-insensitive
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername accepts 1 to MaxUsernameLength printable characters
func ValidateUsername(username string) bool {
	n := utf8.RuneCountInString(username)
	if n == 0 || n > MaxUsernameLength {
		return false
	}
	for _, r := range username {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
