package observability

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// clip strips control runes so client-supplied values cannot forge log lines, then cuts to
// limit runes.
func clip(value string, limit int) string {
	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	return string([]rune(value)[:limit])
}

// SanitizeRoute cleans a path or route pattern for logging.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return clip(route, 180)
}

// SanitizeMethod cleans an HTTP method for logging.
func SanitizeMethod(method string) string { return clip(method, 10) }

// SanitizeUserID truncates account ids before they reach logs.
func SanitizeUserID(uid string) string { return clip(uid, 64) }
