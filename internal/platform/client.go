// Package platform implements a client for the social platform's private
// HTTP API: authentication (including the two-factor and challenge flows),
// follower listing, profile lookup, direct messages, and media actions.
// The session can be bound to a SOCKS5 proxy at construction.
package platform

import "context"

// Profile is a transient lookup result for a single user. It is fetched on
// demand per recipient and never cached.
type Profile struct {
	UserID    string
	Username  string
	FullName  string
	Biography string
}

// DisplayName returns the user's full name, falling back to the username
// when the profile has no full name set.
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Username
}

// Media identifies a single post on the platform.
type Media struct {
	ID string
}

// Client is the authenticated handle to the platform used by the rest of
// the service. All calls are blocking; callers bound them with the context.
type Client interface {
	// Login authenticates with username and password. Returns
	// ErrTwoFactorRequired or ErrChallengeRequired when the account needs
	// an extra verification step.
	Login(ctx context.Context, username, password string) error

	// TwoFactorLogin completes a login that required a verification code.
	TwoFactorLogin(ctx context.Context, username, password, code string) error

	// ResolveChallenge submits a security-challenge code for a login that
	// returned ErrChallengeRequired.
	ResolveChallenge(ctx context.Context, code string) error

	// UserIDFromUsername resolves a handle to a user identifier.
	UserIDFromUsername(ctx context.Context, username string) (string, error)

	// UserFollowers returns up to amount follower identifiers of a user.
	UserFollowers(ctx context.Context, userID string, amount int) ([]string, error)

	// UserInfo fetches the profile of a user.
	UserInfo(ctx context.Context, userID string) (*Profile, error)

	// DirectSend sends a direct message to a user.
	DirectSend(ctx context.Context, userID, text string) error

	// UserMedias returns up to amount recent posts of a user.
	UserMedias(ctx context.Context, userID string, amount int) ([]Media, error)

	// Like marks a post as liked.
	Like(ctx context.Context, mediaID string) error

	// Comment adds a comment to a post.
	Comment(ctx context.Context, mediaID, text string) error

	// CurrentUserID returns the identifier of the logged-in account, or an
	// empty string before a successful login.
	CurrentUserID() string
}
