package domain

import "fmt"

const (
	MinHandleLength = 1
	MaxHandleLength = 15
)

// ValidateHandle checks that the given string is a plausible screen name as
// it appears in profile links: 1-15 characters of [A-Za-z0-9_].
func ValidateHandle(handle string) error {
	if len(handle) < MinHandleLength || len(handle) > MaxHandleLength {
		return fmt.Errorf("%w: bad length %d", ErrInvalidHandle, len(handle))
	}
	for _, c := range handle {
		isWordChar := (c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '_'
		if !isWordChar {
			return fmt.Errorf("%w: bad character %q", ErrInvalidHandle, c)
		}
	}
	return nil
}
