// Package domain defines the core types for an outreach campaign run.
package domain

import "time"

// AuthState tracks where the login workflow currently stands.
type AuthState string

const (
	AuthStateNone                 AuthState = "unauthenticated"
	AuthStateAwaitingSecondFactor AuthState = "awaiting_second_factor"
	AuthStateAwaitingChallenge    AuthState = "awaiting_challenge"
	AuthStateAuthenticated        AuthState = "authenticated"
)

// RunConfig is the immutable configuration of a campaign run, fixed at
// session start from user input and environment defaults.
type RunConfig struct {
	Competitors      []string
	MessagesPerCycle int
	TotalMessages    int
	DurationHours    int
	FollowerBatch    int
}

// Campaign represents a single outreach run.
type Campaign struct {
	RunID     string
	Username  string
	Config    RunConfig
	StartedAt time.Time
}
