package utils

import "regexp"

var (
	urlPattern       = regexp.MustCompile(`(?i)^(https?://)?([\da-z.-]+)\.([a-z.]{2,6})([/\w .-]*)*/?$`)
	protocolPattern  = regexp.MustCompile(`(?i)^(https?|ftp|file|mailto|tel|sms|data):`)
	domainPattern    = regexp.MustCompile(`^[\w-]+(\.[\w-]+)+`)
	ipPattern        = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)
	localhostPattern = regexp.MustCompile(`(?i)^localhost(:\d+)?`)
	schemePattern    = regexp.MustCompile(`^[a-zA-Z]+://`)
)

// IsLikelyURL guesses whether text is meant to be opened rather than shown.
func IsLikelyURL(text string) bool {
	return urlPattern.MatchString(text) ||
		protocolPattern.MatchString(text) ||
		domainPattern.MatchString(text) ||
		ipPattern.MatchString(text) ||
		localhostPattern.MatchString(text)
}

// EnsureScheme prefixes https:// when text has no scheme of its own.
func EnsureScheme(text string) string {
	if schemePattern.MatchString(text) {
		return text
	}
	return "https://" + text
}
