package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const MaxDisplayNameLength = 32

// NormalizeDisplayName trims surrounding whitespace from raw.
//
// An empty result clears the display name and is returned as nil.
func NormalizeDisplayName(raw string) (*string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	if !utf8.ValidString(trimmed) {
		return nil, fmt.Errorf("%w: not valid utf-8", ErrInvalidDisplayName)
	}
	if utf8.RuneCountInString(trimmed) > MaxDisplayNameLength {
		return nil, fmt.Errorf("%w: longer than %d characters", ErrInvalidDisplayName, MaxDisplayNameLength)
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return nil, fmt.Errorf("%w: contains control characters", ErrInvalidDisplayName)
		}
	}

	return &trimmed, nil
}
