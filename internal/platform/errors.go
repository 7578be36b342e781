package platform

import (
	"errors"
	"strings"
)

// Sentinel errors for API failures the workflow branches on. Wrapped errors
// carry the upstream message; callers classify with errors.Is.
var (
	// ErrTwoFactorRequired indicates the account requires a verification
	// code to complete the login.
	ErrTwoFactorRequired = errors.New("two-factor authentication required")

	// ErrChallengeRequired indicates the platform issued a security
	// challenge that must be resolved before the session is usable.
	ErrChallengeRequired = errors.New("challenge required")

	// ErrRateLimited indicates the platform throttled the request.
	ErrRateLimited = errors.New("rate limited")
)

// IsRateLimited reports whether err looks like a platform rate limit. The
// API signals throttling both with a 429 status and with free-text messages,
// so the check combines the sentinel with known message signatures.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "please wait a few minutes") ||
		strings.Contains(msg, "rate limit")
}
