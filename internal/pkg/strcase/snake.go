package strcase

import (
	"strings"
	"unicode"
)

// ToLowerSnake converts a string to snake_case (initialism-safe).
func ToLowerSnake(s string) string {
	return toSnake(s, unicode.ToLower)
}

// ToUpperSnake converts a string to SCREAMING_SNAKE_CASE, the form used for
// environment variable names (TOTPSecret -> TOTP_SECRET).
func ToUpperSnake(s string) string {
	return toSnake(s, unicode.ToUpper)
}

func toSnake(s string, mapRune func(rune) rune) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s) + 4)

	runes := []rune(s)

	for i, r := range runes {
		if r == '-' || r == ' ' || r == '.' {
			b.WriteRune('_')
			continue
		}

		// Add underscore at word boundaries:
		// 1) lower/digit -> upper  (e.g., userID -> user_ID)
		// 2) acronym -> word       (e.g., TOTPSecret -> TOTP_Secret)
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			var next rune
			if i+1 < len(runes) {
				next = runes[i+1]
			}

			switch {
			case unicode.IsLower(prev) || unicode.IsDigit(prev):
				b.WriteRune('_')
			case unicode.IsUpper(prev) && next != 0 && unicode.IsLower(next):
				b.WriteRune('_')
			}
		}

		b.WriteRune(mapRune(r))
	}

	return b.String()
}
