package server

import (
	"strings"
	"unicode"
)

const (
	maxPlayerNameLen  = 20
	maxChatMessageLen = 500
)

// sanitizePlayerName strips a display name down to letters, digits,
// underscores, and hyphens. A name that starts with stripped characters
// keeps a single leading underscore as a placeholder; a name with nothing
// left becomes "Player". The result is capped at 20 characters.
func sanitizePlayerName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-':
			out = append(out, r)
		case len(out) == 0:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "Player"
	}
	if len(out) > maxPlayerNameLen {
		out = out[:maxPlayerNameLen]
	}
	return string(out)
}

// sanitizeChatMessage caps chat text at 500 characters, turns tabs and line
// breaks into spaces, drops all other control characters, and trims the
// surrounding whitespace.
func sanitizeChatMessage(text string) string {
	out := make([]rune, 0, len(text))
	seen := 0
	for _, r := range text {
		if seen == maxChatMessageLen {
			break
		}
		seen++
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			out = append(out, ' ')
		case unicode.IsControl(r):
			// dropped
		default:
			out = append(out, r)
		}
	}
	return strings.TrimSpace(string(out))
}
