// Package session manages authentication against the platform. A login has
// four outcomes (authenticated, second factor required, challenge required,
// failed) and the manager converts the platform client's errors into that
// contract without retrying; the form workflow re-invokes it with updated
// input.
package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mvidalr/gramreach/internal/platform"
)

// State is the outcome class of an authentication attempt.
type State string

const (
	StateAuthenticated     State = "authenticated"
	StateNeedsSecondFactor State = "needs_second_factor"
	StateNeedsChallenge    State = "needs_challenge"
	StateFailed            State = "failed"
)

// Outcome is the result of an authentication attempt. Reason is set for
// StateFailed and is safe to surface to the user.
type Outcome struct {
	State  State
	Reason string
}

// Manager holds the platform client handle and drives the login flows.
type Manager struct {
	client platform.Client
	logger *slog.Logger
}

// NewManager creates a manager over a platform client.
func NewManager(client platform.Client, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		client: client,
		logger: logger.With("component", "session"),
	}
}

// Client returns the underlying platform handle. Only meaningful once an
// attempt has reached StateAuthenticated.
func (m *Manager) Client() platform.Client {
	return m.client
}

// Authenticate attempts a login. When code is non-empty the two-factor
// completion endpoint is used; otherwise a plain login. Upstream failures
// are classified, never propagated.
func (m *Manager) Authenticate(ctx context.Context, username, password, code string) Outcome {
	var err error
	if code != "" {
		err = m.client.TwoFactorLogin(ctx, username, password, code)
	} else {
		err = m.client.Login(ctx, username, password)
	}
	return m.classify(err, username)
}

// ResolveChallenge submits a security-challenge code for a login that
// previously returned StateNeedsChallenge.
func (m *Manager) ResolveChallenge(ctx context.Context, code string) Outcome {
	err := m.client.ResolveChallenge(ctx, code)
	return m.classify(err, "")
}

func (m *Manager) classify(err error, username string) Outcome {
	switch {
	case err == nil:
		return Outcome{State: StateAuthenticated}
	case errors.Is(err, platform.ErrTwoFactorRequired):
		m.logger.Info("login requires second factor", "username", username)
		return Outcome{State: StateNeedsSecondFactor}
	case errors.Is(err, platform.ErrChallengeRequired):
		m.logger.Info("login requires challenge resolution", "username", username)
		return Outcome{State: StateNeedsChallenge}
	default:
		m.logger.Error("authentication failed", "username", username, "error", err)
		return Outcome{State: StateFailed, Reason: "login failed, check your credentials and try again"}
	}
}
