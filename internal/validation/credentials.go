package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	minPasswordLen = 10
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
	minHandleLen     = 3
	maxHandleLen     = 30
)

// handlePattern matches the characters accepted after "@" in mentions, so
// every valid username can be mentioned.
var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// passwordProblem returns a user-facing reason pw is too weak, or "".
func passwordProblem(pw string) string {
	if len([]rune(pw)) < minPasswordLen {
		return fmt.Sprintf("password must be at least %d characters", minPasswordLen)
	}
	if len(pw) > maxPasswordBytes {
		return fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes)
	}
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	classes := 0
	for _, ok := range []bool{upper, lower, digit, symbol} {
		if ok {
			classes++
		}
	}
	if classes < 3 {
		return "password needs at least three kinds of characters (upper case, lower case, digits or symbols)"
	}
	return ""
}

// handleProblem returns a user-facing reason name is not a usable username, or "".
func handleProblem(name string) string {
	switch {
	case len(name) < minHandleLen:
		return fmt.Sprintf("username must be at least %d characters", minHandleLen)
	case len(name) > maxHandleLen:
		return fmt.Sprintf("username must be at most %d characters", maxHandleLen)
	case !handlePattern.MatchString(name):
		return "username may only use letters, digits, underscores and hyphens"
	case strings.IndexAny(name[:1], "_-") == 0 || strings.IndexAny(name[len(name)-1:], "_-") == 0:
		return "username cannot start or end with an underscore or hyphen"
	}
	return ""
}
