package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mvidalr/gramreach/internal/compose"
	"github.com/mvidalr/gramreach/internal/config"
	"github.com/mvidalr/gramreach/internal/content"
	"github.com/mvidalr/gramreach/internal/events"
	"github.com/mvidalr/gramreach/internal/platform"
)

// fakeClient implements platform.Client far enough for the workflow: login
// outcomes are configurable, harvest and delivery always succeed.
type fakeClient struct {
	platform.Client

	loginErr error
}

func (f *fakeClient) Login(_ context.Context, _, _ string) error {
	return f.loginErr
}

func (f *fakeClient) TwoFactorLogin(_ context.Context, _, _, _ string) error {
	return nil
}

func (f *fakeClient) ResolveChallenge(_ context.Context, _ string) error {
	return nil
}

func (f *fakeClient) UserIDFromUsername(_ context.Context, _ string) (string, error) {
	return "42", nil
}

func (f *fakeClient) UserFollowers(_ context.Context, _ string, _ int) ([]string, error) {
	return []string{"f1"}, nil
}

func (f *fakeClient) UserInfo(_ context.Context, userID string) (*platform.Profile, error) {
	return &platform.Profile{UserID: userID, Username: "follower", Biography: "bio"}, nil
}

func (f *fakeClient) DirectSend(_ context.Context, _, _ string) error {
	return nil
}

type stubLLM struct{}

func (stubLLM) Complete(_ context.Context, _, _ string) (string, error) {
	return "Hey there!", nil
}

func newTestHandler(t *testing.T, client platform.Client) (*Handler, chi.Router) {
	t.Helper()

	dir := t.TempDir()
	msgPath := filepath.Join(dir, "messages.txt")
	if err := os.WriteFile(msgPath, []byte("Hi!\n"), 0644); err != nil {
		t.Fatalf("write messages file: %v", err)
	}

	cfg := &config.Config{
		Campaign: config.CampaignConfig{
			MessagesPerCycle: 1,
			TotalMessages:    1,
			DurationHours:    1,
			FollowerBatch:    5,
			MinSendDelay:     time.Second,
			MaxSendDelay:     2 * time.Second,
			RateLimitBackoff: time.Second,
		},
	}
	library := content.NewLibrary(msgPath, filepath.Join(dir, "kb.txt"), nil)
	composer := compose.NewComposer(library, stubLLM{}, nil)

	h := NewHandler(cfg, nil, events.NewHub(), library, composer,
		func() (platform.Client, error) { return client, nil }, nil)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return h, r
}

func postForm(r chi.Router, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJSONHelper(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"ok": "yes"})

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != "yes" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestErrorHelper(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Error(rec, http.StatusBadRequest, "nope")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "nope" {
		t.Errorf("unexpected error body: %v", body)
	}
}

func TestSplitHandles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{" , , ", 0},
		{"one", 1},
		{"one,two", 2},
		{" one , two ,", 2},
	}
	for _, tt := range tests {
		if got := splitHandles(tt.raw); len(got) != tt.want {
			t.Errorf("splitHandles(%q) = %v, want %d handles", tt.raw, got, tt.want)
		}
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, r := newTestHandler(t, &fakeClient{})

	rec := postForm(r, "/login", url.Values{"username": {"ana"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/?flash=") {
		t.Errorf("expected flash redirect to index, got %q", loc)
	}
}

func TestLoginRequiresCompetitors(t *testing.T) {
	t.Parallel()

	_, r := newTestHandler(t, &fakeClient{})

	rec := postForm(r, "/login", url.Values{
		"username": {"ana"},
		"password": {"secret"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/?flash=") {
		t.Errorf("expected flash redirect to index, got %q", loc)
	}
}

func TestLoginRedirectsToTwoFactor(t *testing.T) {
	t.Parallel()

	_, r := newTestHandler(t, &fakeClient{loginErr: platform.ErrTwoFactorRequired})

	rec := postForm(r, "/login", url.Values{
		"username":    {"ana"},
		"password":    {"secret"},
		"competitors": {"comp1"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/2fa" {
		t.Errorf("expected redirect to /2fa, got %q", loc)
	}
}

func TestLoginRedirectsToChallenge(t *testing.T) {
	t.Parallel()

	_, r := newTestHandler(t, &fakeClient{loginErr: platform.ErrChallengeRequired})

	rec := postForm(r, "/login", url.Values{
		"username":    {"ana"},
		"password":    {"secret"},
		"competitors": {"comp1"},
	})
	if loc := rec.Header().Get("Location"); loc != "/challenge" {
		t.Errorf("expected redirect to /challenge, got %q", loc)
	}
}

func TestLoginStartsCampaign(t *testing.T) {
	t.Parallel()

	h, r := newTestHandler(t, &fakeClient{})

	rec := postForm(r, "/login", url.Values{
		"username":    {"ana"},
		"password":    {"secret"},
		"competitors": {"comp1"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/status" {
		t.Errorf("expected redirect to /status, got %q", loc)
	}

	runID, _, _, _ := h.snapshot()
	if runID == "" {
		t.Error("expected a run ID after campaign start")
	}

	// Shut the schedule down so the test doesn't leak a long timer.
	rec = postForm(r, "/stop", nil)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected redirect from stop, got %d", rec.Code)
	}
}

func TestTwoFactorWithoutPendingLogin(t *testing.T) {
	t.Parallel()

	_, r := newTestHandler(t, &fakeClient{})

	rec := postForm(r, "/2fa", url.Values{"code": {"123456"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/?flash=") {
		t.Errorf("expected flash redirect to index, got %q", loc)
	}
}

func TestChallengeWithoutPendingLogin(t *testing.T) {
	t.Parallel()

	_, r := newTestHandler(t, &fakeClient{})

	rec := postForm(r, "/challenge", url.Values{"code": {"123456"}})
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/?flash=") {
		t.Errorf("expected flash redirect to index, got %q", loc)
	}
}

func TestStopWithoutCampaign(t *testing.T) {
	t.Parallel()

	_, r := newTestHandler(t, &fakeClient{})

	rec := postForm(r, "/stop", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/status?flash=") {
		t.Errorf("expected flash redirect to status, got %q", loc)
	}
}

func TestStatusJSONWithoutCampaign(t *testing.T) {
	t.Parallel()

	_, r := newTestHandler(t, &fakeClient{})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["run_id"] != "" {
		t.Errorf("expected empty run_id, got %v", body["run_id"])
	}
	if body["running"] != false {
		t.Errorf("expected running=false, got %v", body["running"])
	}
}
