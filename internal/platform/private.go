package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/proxy"
)

const (
	defaultBaseURL = "https://i.instagram.com/api/v1"
	userAgent      = "Instagram 271.1.0.21.84 Android"
	requestTimeout = 30 * time.Second
)

// PrivateClient talks to the platform's private API over HTTP, keeping the
// session cookies in-process for the lifetime of the run.
type PrivateClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu sync.Mutex
	// userID is set after a successful login.
	userID string
	// twoFactorID is captured from a login that required a second factor
	// and replayed on the two-factor completion call.
	twoFactorID string
	// challengePath is the API path of a pending security challenge.
	challengePath string
}

var _ Client = (*PrivateClient)(nil)

// NewPrivateClient creates a client for the private API. baseURL may be
// empty to use the production endpoint; proxyAddr, when non-empty, is a
// SOCKS5 address (host:port) all traffic is routed through.
func NewPrivateClient(baseURL, proxyAddr string, logger *slog.Logger) (*PrivateClient, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
	if proxyAddr != "" {
		dialer, err := proxy.SOCKS5("tcp", proxyAddr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("create SOCKS5 dialer for %s: %w", proxyAddr, err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
		logger.Info("platform client bound to SOCKS5 proxy", "proxy", proxyAddr)
	}

	return &PrivateClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   requestTimeout,
		},
		logger: logger.With("component", "platform"),
	}, nil
}

// ---------- Wire types ----------

type apiUser struct {
	PK        json.Number `json:"pk"`
	Username  string      `json:"username"`
	FullName  string      `json:"full_name"`
	Biography string      `json:"biography"`
}

// apiError is the envelope the private API uses for failures. Two-factor
// and challenge requirements arrive through here rather than as distinct
// status codes.
type apiError struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	TwoFactorInfo *struct {
		TwoFactorIdentifier string `json:"two_factor_identifier"`
	} `json:"two_factor_info,omitempty"`
	Challenge *struct {
		APIPath string `json:"api_path"`
	} `json:"challenge,omitempty"`
}

// ---------- Authentication ----------

// Login authenticates with username and password.
func (c *PrivateClient) Login(ctx context.Context, username, password string) error {
	form := url.Values{
		"username": {username},
		"password": {password},
	}

	var resp struct {
		LoggedInUser apiUser `json:"logged_in_user"`
	}
	if err := c.do(ctx, http.MethodPost, "/accounts/login/", form, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	c.setUserID(resp.LoggedInUser.PK.String())
	c.logger.Info("logged in", "username", username)
	return nil
}

// TwoFactorLogin completes a login that required a verification code.
func (c *PrivateClient) TwoFactorLogin(ctx context.Context, username, password, code string) error {
	c.mu.Lock()
	identifier := c.twoFactorID
	c.mu.Unlock()

	form := url.Values{
		"username":              {username},
		"password":              {password},
		"verification_code":     {code},
		"two_factor_identifier": {identifier},
	}

	var resp struct {
		LoggedInUser apiUser `json:"logged_in_user"`
	}
	if err := c.do(ctx, http.MethodPost, "/accounts/two_factor_login/", form, &resp); err != nil {
		return fmt.Errorf("two-factor login: %w", err)
	}

	c.setUserID(resp.LoggedInUser.PK.String())
	c.logger.Info("logged in with two-factor code", "username", username)
	return nil
}

// ResolveChallenge submits a security-challenge code on the path the
// platform handed back with the challenge.
func (c *PrivateClient) ResolveChallenge(ctx context.Context, code string) error {
	c.mu.Lock()
	path := c.challengePath
	c.mu.Unlock()

	if path == "" {
		return fmt.Errorf("resolve challenge: no pending challenge")
	}

	form := url.Values{"security_code": {code}}
	var resp struct {
		LoggedInUser apiUser `json:"logged_in_user"`
	}
	if err := c.do(ctx, http.MethodPost, path, form, &resp); err != nil {
		return fmt.Errorf("resolve challenge: %w", err)
	}

	c.mu.Lock()
	c.challengePath = ""
	c.mu.Unlock()
	if id := resp.LoggedInUser.PK.String(); id != "" && id != "0" {
		c.setUserID(id)
	}
	c.logger.Info("challenge resolved")
	return nil
}

// ---------- Users and followers ----------

// UserIDFromUsername resolves a handle to a user identifier.
func (c *PrivateClient) UserIDFromUsername(ctx context.Context, username string) (string, error) {
	var resp struct {
		User apiUser `json:"user"`
	}
	path := fmt.Sprintf("/users/%s/usernameinfo/", url.PathEscape(username))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("resolve username %q: %w", username, err)
	}
	return resp.User.PK.String(), nil
}

// UserFollowers returns up to amount follower identifiers of a user.
func (c *PrivateClient) UserFollowers(ctx context.Context, userID string, amount int) ([]string, error) {
	var resp struct {
		Users []apiUser `json:"users"`
	}
	path := fmt.Sprintf("/friendships/%s/followers/?count=%d", url.PathEscape(userID), amount)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch followers of %s: %w", userID, err)
	}

	ids := make([]string, 0, len(resp.Users))
	for _, u := range resp.Users {
		if id := u.PK.String(); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) > amount {
		ids = ids[:amount]
	}
	return ids, nil
}

// UserInfo fetches the profile of a user.
func (c *PrivateClient) UserInfo(ctx context.Context, userID string) (*Profile, error) {
	var resp struct {
		User apiUser `json:"user"`
	}
	path := fmt.Sprintf("/users/%s/info/", url.PathEscape(userID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch profile of %s: %w", userID, err)
	}

	return &Profile{
		UserID:    resp.User.PK.String(),
		Username:  resp.User.Username,
		FullName:  resp.User.FullName,
		Biography: resp.User.Biography,
	}, nil
}

// ---------- Messaging and media ----------

// DirectSend sends a direct message to a user.
func (c *PrivateClient) DirectSend(ctx context.Context, userID, text string) error {
	form := url.Values{
		"text":            {text},
		"recipient_users": {fmt.Sprintf("[[%s]]", userID)},
	}
	if err := c.do(ctx, http.MethodPost, "/direct_v2/threads/broadcast/text/", form, nil); err != nil {
		return fmt.Errorf("send direct message to %s: %w", userID, err)
	}
	return nil
}

// UserMedias returns up to amount recent posts of a user.
func (c *PrivateClient) UserMedias(ctx context.Context, userID string, amount int) ([]Media, error) {
	var resp struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	path := fmt.Sprintf("/feed/user/%s/?count=%d", url.PathEscape(userID), amount)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch medias of %s: %w", userID, err)
	}

	medias := make([]Media, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.ID != "" {
			medias = append(medias, Media{ID: it.ID})
		}
	}
	if len(medias) > amount {
		medias = medias[:amount]
	}
	return medias, nil
}

// Like marks a post as liked.
func (c *PrivateClient) Like(ctx context.Context, mediaID string) error {
	path := fmt.Sprintf("/media/%s/like/", url.PathEscape(mediaID))
	if err := c.do(ctx, http.MethodPost, path, url.Values{}, nil); err != nil {
		return fmt.Errorf("like media %s: %w", mediaID, err)
	}
	return nil
}

// Comment adds a comment to a post.
func (c *PrivateClient) Comment(ctx context.Context, mediaID, text string) error {
	path := fmt.Sprintf("/media/%s/comment/", url.PathEscape(mediaID))
	form := url.Values{"comment_text": {text}}
	if err := c.do(ctx, http.MethodPost, path, form, nil); err != nil {
		return fmt.Errorf("comment on media %s: %w", mediaID, err)
	}
	return nil
}

// CurrentUserID returns the identifier of the logged-in account.
func (c *PrivateClient) CurrentUserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *PrivateClient) setUserID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
}

// ---------- Transport ----------

// do performs one API request. Non-2xx responses are decoded into the API's
// error envelope and classified; two-factor and challenge markers found in
// the envelope are retained on the client for the follow-up calls.
func (c *PrivateClient) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.classify(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// classify maps an error response onto the package sentinels.
func (c *PrivateClient) classify(status int, data []byte) error {
	var e apiError
	_ = json.Unmarshal(data, &e)

	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(string(data))
	}

	switch {
	case e.TwoFactorInfo != nil || strings.Contains(msg, "two_factor_required") ||
		strings.Contains(msg, "Two-factor authentication required"):
		if e.TwoFactorInfo != nil {
			c.mu.Lock()
			c.twoFactorID = e.TwoFactorInfo.TwoFactorIdentifier
			c.mu.Unlock()
		}
		return fmt.Errorf("%w", ErrTwoFactorRequired)

	case e.Challenge != nil || strings.Contains(msg, "challenge_required"):
		if e.Challenge != nil && e.Challenge.APIPath != "" {
			c.mu.Lock()
			c.challengePath = e.Challenge.APIPath
			c.mu.Unlock()
		}
		return fmt.Errorf("%w", ErrChallengeRequired)

	case status == http.StatusTooManyRequests ||
		strings.Contains(strings.ToLower(msg), "please wait a few minutes"):
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)

	default:
		return fmt.Errorf("api error (status %d): %s", status, msg)
	}
}
