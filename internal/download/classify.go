package download

import "strings"

// Auth-class failures get their own status so the caller can prompt for a
// cookie refresh instead of a generic retry.
var authPatterns = []string{
	"sign in",
	"log in",
	"login required",
	"private video",
	"members-only",
	"members only",
	"video unavailable",
	"account",
}

var networkPatterns = []string{
	"connection",
	"timed out",
	"timeout",
	"network",
	"unable to connect",
	"getaddrinfo",
	"temporary failure",
	"resolve",
}

// Classify maps a terminal error message to a result status by pattern
// matching the external tool's stderr text.
func Classify(message string) ResultStatus {
	lower := strings.ToLower(message)
	for _, pattern := range authPatterns {
		if strings.Contains(lower, pattern) {
			return ResultAuthError
		}
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(lower, pattern) {
			return ResultNetworkError
		}
	}
	return ResultUnknown
}
