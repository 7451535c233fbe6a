// Package classify implements the provider error classifier (spec
// §4.4): a pure function mapping a provider error message to one of
// {transient, rate_limit, permanent}.
package classify

import "strings"

// Verdict is the classifier's output.
type Verdict string

const (
	Transient Verdict = "transient"
	RateLimit Verdict = "rate_limit"
	Permanent Verdict = "permanent"
)

var rateLimitMarkers = []string{"429", "too many requests"}

var permanentMarkers = []string{"401", "403", "unauthorized", "forbidden", "invalid api key"}

var transientMarkers = []string{
	"timeout", "timed out", "503", "500", "502",
	"connection reset", "connection refused", "temporarily unavailable",
}

// Classify maps a provider error message to a Verdict. Tie-break order
// is rate_limit > permanent > transient, since a 429 is recoverable
// even if the message also contains a permanent-looking marker.
func Classify(message string) Verdict {
	lower := strings.ToLower(message)

	if containsAny(lower, rateLimitMarkers) {
		return RateLimit
	}
	if containsAny(lower, permanentMarkers) {
		return Permanent
	}
	if containsAny(lower, transientMarkers) {
		return Transient
	}
	return Transient
}

func containsAny(haystack string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(haystack, m) {
			return true
		}
	}
	return false
}
