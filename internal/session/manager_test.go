package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mvidalr/gramreach/internal/platform"
)

// fakeClient implements platform.Client with scripted authentication
// outcomes.
type fakeClient struct {
	platform.Client

	loginErr     error
	twoFactorErr error
	challengeErr error

	twoFactorCode string
	challengeCode string
}

func (f *fakeClient) Login(_ context.Context, _, _ string) error {
	return f.loginErr
}

func (f *fakeClient) TwoFactorLogin(_ context.Context, _, _, code string) error {
	f.twoFactorCode = code
	return f.twoFactorErr
}

func (f *fakeClient) ResolveChallenge(_ context.Context, code string) error {
	f.challengeCode = code
	return f.challengeErr
}

func TestAuthenticateSuccess(t *testing.T) {
	t.Parallel()

	m := NewManager(&fakeClient{}, nil)
	out := m.Authenticate(context.Background(), "ana", "secret", "")
	if out.State != StateAuthenticated {
		t.Errorf("expected StateAuthenticated, got %v", out.State)
	}
}

func TestAuthenticateClassifiesSecondFactor(t *testing.T) {
	t.Parallel()

	client := &fakeClient{loginErr: fmt.Errorf("login: %w", platform.ErrTwoFactorRequired)}
	m := NewManager(client, nil)

	out := m.Authenticate(context.Background(), "ana", "secret", "")
	if out.State != StateNeedsSecondFactor {
		t.Errorf("expected StateNeedsSecondFactor, got %v", out.State)
	}
}

func TestAuthenticateClassifiesChallenge(t *testing.T) {
	t.Parallel()

	// Valid credentials but the account requires a security challenge:
	// the outcome must be needs-challenge, not failed.
	client := &fakeClient{loginErr: fmt.Errorf("login: %w", platform.ErrChallengeRequired)}
	m := NewManager(client, nil)

	out := m.Authenticate(context.Background(), "ana", "secret", "")
	if out.State != StateNeedsChallenge {
		t.Errorf("expected StateNeedsChallenge, got %v", out.State)
	}
}

func TestAuthenticateFailure(t *testing.T) {
	t.Parallel()

	client := &fakeClient{loginErr: errors.New("bad password")}
	m := NewManager(client, nil)

	out := m.Authenticate(context.Background(), "ana", "wrong", "")
	if out.State != StateFailed {
		t.Errorf("expected StateFailed, got %v", out.State)
	}
	if out.Reason == "" {
		t.Error("expected a user-facing failure reason")
	}
}

func TestAuthenticateUsesTwoFactorEndpointWithCode(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	m := NewManager(client, nil)

	out := m.Authenticate(context.Background(), "ana", "secret", "123456")
	if out.State != StateAuthenticated {
		t.Fatalf("expected StateAuthenticated, got %v", out.State)
	}
	if client.twoFactorCode != "123456" {
		t.Errorf("expected code to reach the two-factor endpoint, got %q", client.twoFactorCode)
	}
}

func TestResolveChallenge(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	m := NewManager(client, nil)

	out := m.ResolveChallenge(context.Background(), "424242")
	if out.State != StateAuthenticated {
		t.Errorf("expected StateAuthenticated, got %v", out.State)
	}
	if client.challengeCode != "424242" {
		t.Errorf("expected challenge code to be submitted, got %q", client.challengeCode)
	}
}

func TestResolveChallengeFailure(t *testing.T) {
	t.Parallel()

	client := &fakeClient{challengeErr: errors.New("wrong code")}
	m := NewManager(client, nil)

	if out := m.ResolveChallenge(context.Background(), "000000"); out.State != StateFailed {
		t.Errorf("expected StateFailed, got %v", out.State)
	}
}
