package registry

import (
	"fmt"
	"regexp"
	"strings"
)

// projectCodeRegex is the allowed charset for project codes.
var projectCodeRegex = regexp.MustCompile(`^[a-z0-9\-_]+$`)

// minProjectCodeLength is the minimum length of a project code.
const minProjectCodeLength = 3

// ValidateProjectCode checks a project code against the identifier rules:
// minimum 3 characters, lowercase letters, digits, "-" and "_" only.
func ValidateProjectCode(code string) error {
	if len(code) < minProjectCodeLength || !projectCodeRegex.MatchString(code) {
		return fmt.Errorf("%w: %q (only a-z, 0-9, '-' and '_' are allowed, minimum %d characters)",
			ErrInvalidProjectCode, code, minProjectCodeLength)
	}
	return nil
}

// ProjectCodeFromTitle derives a project code from a human title by
// lower-casing it and replacing every character outside [a-z0-9_-]
// with "-". The result still needs ValidateProjectCode; a title like
// "-" derives a code that is too short.
func ProjectCodeFromTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, c := range strings.ToLower(title) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			b.WriteRune(c)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
