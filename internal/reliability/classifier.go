package reliability

import (
	"strings"
	"time"
)

// IsBenignSynthesisCode classifies platform synthesis errors that represent a
// normal early termination (cancellation or a superseding utterance).
func IsBenignSynthesisCode(code string) bool {
	switch normalizeCode(code) {
	case "canceled", "cancelled", "interrupted":
		return true
	default:
		return false
	}
}

// IsAutoplayBlockedCode reports whether the platform refused playback because
// no user interaction has happened yet.
func IsAutoplayBlockedCode(code string) bool {
	switch normalizeCode(code) {
	case "not-allowed", "not_allowed", "notallowederror":
		return true
	default:
		return false
	}
}

// IsBenignRecognitionCode classifies recognition errors that are expected
// operating conditions and must not surface to the caller.
func IsBenignRecognitionCode(code string) bool {
	switch normalizeCode(code) {
	case "aborted", "no-speech", "no_speech":
		return true
	default:
		return false
	}
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// RetryPolicy describes a bounded fixed-interval retry loop.
type RetryPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// Enabled reports whether the policy allows any retries at all.
func (p RetryPolicy) Enabled() bool {
	return p.Interval > 0 && p.MaxAttempts > 0
}
