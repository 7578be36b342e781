// Package api provides HTTP handlers for the gramreach form workflow:
// login, two-factor and challenge resolution, campaign status, and stop.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mvidalr/gramreach/internal/activity"
	"github.com/mvidalr/gramreach/internal/campaign"
	"github.com/mvidalr/gramreach/internal/compose"
	"github.com/mvidalr/gramreach/internal/config"
	"github.com/mvidalr/gramreach/internal/content"
	"github.com/mvidalr/gramreach/internal/domain"
	"github.com/mvidalr/gramreach/internal/events"
	"github.com/mvidalr/gramreach/internal/harvest"
	"github.com/mvidalr/gramreach/internal/platform"
	"github.com/mvidalr/gramreach/internal/session"
	"github.com/mvidalr/gramreach/internal/store"
	"github.com/mvidalr/gramreach/web"
)

// ClientFactory builds a fresh platform client for a login attempt.
type ClientFactory func() (platform.Client, error)

// campaignState is the process-wide mutable state of the current run:
// pending credentials between login and 2FA/challenge steps, the session
// manager, and the running scheduler. Guarded by Handler.mu.
type campaignState struct {
	auth        domain.AuthState
	username    string
	password    string
	competitors []string
	manager     *session.Manager
	runID       string
	sched       *campaign.Scheduler
}

// Handler drives the session/harvest/schedule workflow.
type Handler struct {
	cfg       *config.Config
	repo      store.Repository
	hub       *events.Hub
	library   *content.Library
	composer  *compose.Composer
	newClient ClientFactory
	logger    *slog.Logger

	mu    sync.Mutex
	state campaignState
}

// NewHandler creates a workflow handler.
func NewHandler(cfg *config.Config, repo store.Repository, hub *events.Hub, library *content.Library, composer *compose.Composer, newClient ClientFactory, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:       cfg,
		repo:      repo,
		hub:       hub,
		library:   library,
		composer:  composer,
		newClient: newClient,
		logger:    logger.With("component", "api"),
		state:     campaignState{auth: domain.AuthStateNone},
	}
}

// RegisterRoutes attaches the workflow routes to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Post("/login", h.handleLogin)
	r.Get("/2fa", h.handleTwoFactorForm)
	r.Post("/2fa", h.handleTwoFactor)
	r.Get("/challenge", h.handleChallengeForm)
	r.Post("/challenge", h.handleChallenge)
	r.Get("/status", h.handleStatus)
	r.Get("/api/status", h.handleStatusJSON)
	r.Post("/stop", h.handleStop)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// ---------- Form pages ----------

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, "index", map[string]any{"Flash": flash(r)})
}

func (h *Handler) handleTwoFactorForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "twofactor", map[string]any{"Flash": flash(r)})
}

func (h *Handler) handleChallengeForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "challenge", map[string]any{"Flash": flash(r)})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	runID, running, sent, queued := h.snapshot()
	h.render(w, "status", map[string]any{
		"Flash":   flash(r),
		"RunID":   runID,
		"Running": running,
		"Sent":    sent,
		"Queued":  queued,
	})
}

func (h *Handler) handleStatusJSON(w http.ResponseWriter, r *http.Request) {
	runID, running, sent, queued := h.snapshot()

	delivered := 0
	recent := []map[string]any{}
	if h.repo != nil && runID != "" {
		if n, err := h.repo.CountDeliveries(r.Context(), runID); err != nil {
			h.logger.Warn("failed to count deliveries", "run_id", runID, "error", err)
		} else {
			delivered = n
		}
		if deliveries, err := h.repo.RecentDeliveries(r.Context(), runID, 10); err != nil {
			h.logger.Warn("failed to list recent deliveries", "run_id", runID, "error", err)
		} else {
			for _, d := range deliveries {
				recent = append(recent, map[string]any{
					"recipient": d.RecipientName,
					"message":   d.Message,
					"sent_at":   d.SentAt,
				})
			}
		}
	}

	JSON(w, http.StatusOK, map[string]any{
		"run_id":    runID,
		"running":   running,
		"sent":      sent,
		"queued":    queued,
		"delivered": delivered,
		"recent":    recent,
	})
}

// ---------- Workflow ----------

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	competitors := splitHandles(r.FormValue("competitors"))

	if username == "" || password == "" {
		redirectFlash(w, r, "/", "username and password are required")
		return
	}
	if len(competitors) == 0 {
		redirectFlash(w, r, "/", "at least one competitor account is required")
		return
	}

	client, err := h.newClient()
	if err != nil {
		h.logger.Error("failed to create platform client", "error", err)
		redirectFlash(w, r, "/", "internal error, try again")
		return
	}
	manager := session.NewManager(client, h.logger)

	outcome := manager.Authenticate(r.Context(), username, password, "")

	h.mu.Lock()
	h.state.username = username
	h.state.password = password
	h.state.competitors = competitors
	h.state.manager = manager
	h.mu.Unlock()

	switch outcome.State {
	case session.StateNeedsSecondFactor:
		h.setAuth(domain.AuthStateAwaitingSecondFactor)
		http.Redirect(w, r, "/2fa", http.StatusSeeOther)
	case session.StateNeedsChallenge:
		h.setAuth(domain.AuthStateAwaitingChallenge)
		http.Redirect(w, r, "/challenge", http.StatusSeeOther)
	case session.StateAuthenticated:
		h.setAuth(domain.AuthStateAuthenticated)
		h.startCampaign(w, r)
	default:
		h.setAuth(domain.AuthStateNone)
		redirectFlash(w, r, "/", outcome.Reason)
	}
}

func (h *Handler) handleTwoFactor(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.FormValue("code"))
	if code == "" {
		redirectFlash(w, r, "/2fa", "verification code is required")
		return
	}

	h.mu.Lock()
	manager := h.state.manager
	username := h.state.username
	password := h.state.password
	auth := h.state.auth
	h.mu.Unlock()

	if manager == nil || auth != domain.AuthStateAwaitingSecondFactor {
		redirectFlash(w, r, "/", "no login awaiting verification")
		return
	}

	outcome := manager.Authenticate(r.Context(), username, password, code)
	switch outcome.State {
	case session.StateAuthenticated:
		h.setAuth(domain.AuthStateAuthenticated)
		h.startCampaign(w, r)
	case session.StateNeedsChallenge:
		h.setAuth(domain.AuthStateAwaitingChallenge)
		http.Redirect(w, r, "/challenge", http.StatusSeeOther)
	default:
		redirectFlash(w, r, "/2fa", "could not verify the code, try again")
	}
}

func (h *Handler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.FormValue("code"))
	if code == "" {
		redirectFlash(w, r, "/challenge", "challenge code is required")
		return
	}

	h.mu.Lock()
	manager := h.state.manager
	auth := h.state.auth
	h.mu.Unlock()

	if manager == nil || auth != domain.AuthStateAwaitingChallenge {
		redirectFlash(w, r, "/", "no login awaiting a challenge")
		return
	}

	outcome := manager.ResolveChallenge(r.Context(), code)
	switch outcome.State {
	case session.StateAuthenticated:
		h.setAuth(domain.AuthStateAuthenticated)
		h.startCampaign(w, r)
	default:
		redirectFlash(w, r, "/challenge", "could not resolve the challenge, try again")
	}
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	sched := h.state.sched
	h.mu.Unlock()

	if sched == nil || !sched.Running() {
		redirectFlash(w, r, "/status", "no campaign is running")
		return
	}

	sched.Stop()
	h.logger.Info("campaign stop requested")
	redirectFlash(w, r, "/status", "campaign stopping")
}

// startCampaign harvests the working set and launches the scheduler. Called
// with an authenticated session manager in state.
func (h *Handler) startCampaign(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	manager := h.state.manager
	username := h.state.username
	competitors := h.state.competitors
	prev := h.state.sched
	h.mu.Unlock()

	if prev != nil && prev.Running() {
		prev.Stop()
		h.logger.Info("stopped previous campaign before starting a new one")
	}

	harvester := harvest.NewHarvester(manager.Client(), h.cfg.Campaign.FollowerBatch, h.logger)
	set := harvester.Harvest(r.Context(), competitors)
	if set.Len() == 0 {
		redirectFlash(w, r, "/", "could not harvest any followers from the competitor accounts")
		return
	}

	runID := uuid.NewString()
	if h.hub != nil {
		h.hub.Publish(events.Event{Type: events.TypeHarvestDone, RunID: runID,
			Detail: fmt.Sprintf("%d recipients queued", set.Len())})
	}

	runCfg := domain.RunConfig{
		Competitors:      competitors,
		MessagesPerCycle: h.cfg.Campaign.MessagesPerCycle,
		TotalMessages:    h.cfg.Campaign.TotalMessages,
		DurationHours:    h.cfg.Campaign.DurationHours,
		FollowerBatch:    h.cfg.Campaign.FollowerBatch,
	}

	if h.repo != nil {
		record := &domain.Campaign{
			RunID:     runID,
			Username:  username,
			Config:    runCfg,
			StartedAt: time.Now(),
		}
		if err := h.repo.CreateCampaign(r.Context(), record); err != nil {
			h.logger.Warn("failed to record campaign start", "run_id", runID, "error", err)
		}
	}

	engine := campaign.NewEngine(manager.Client(), h.composer, h.repo, h.hub, campaign.Pacing{
		MinSendDelay:     h.cfg.Campaign.MinSendDelay,
		MaxSendDelay:     h.cfg.Campaign.MaxSendDelay,
		RateLimitBackoff: h.cfg.Campaign.RateLimitBackoff,
	}, h.logger)

	var simulator campaign.ActivitySimulator
	if h.cfg.Campaign.ActivityEnabled {
		simulator = activity.NewSimulator(manager.Client(), h.library, h.cfg.Campaign.ActivityPosts, h.logger)
	}

	sched := campaign.NewScheduler(engine, simulator, set, runID, runCfg, h.hub, h.logger)

	h.mu.Lock()
	h.state.runID = runID
	h.state.sched = sched
	h.mu.Unlock()

	// The campaign outlives the request; it is stopped via /stop or
	// process shutdown, not by the request context.
	sched.Start(context.Background())

	h.logger.Info("campaign started", "run_id", runID, "recipients", set.Len())
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// ---------- Helpers ----------

func (h *Handler) setAuth(state domain.AuthState) {
	h.mu.Lock()
	h.state.auth = state
	h.mu.Unlock()
}

func (h *Handler) snapshot() (runID string, running bool, sent, queued int) {
	h.mu.Lock()
	runID = h.state.runID
	sched := h.state.sched
	h.mu.Unlock()

	if sched != nil {
		running = sched.Running()
		sent = sched.TotalSent()
		queued = sched.QueueLen()
	}
	return runID, running, sent, queued
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.Render(w, name, data); err != nil {
		h.logger.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// flash reads the flash message from the query string.
func flash(r *http.Request) string {
	return r.URL.Query().Get("flash")
}

// redirectFlash redirects carrying a flash message as a query parameter.
func redirectFlash(w http.ResponseWriter, r *http.Request, path, msg string) {
	if msg != "" {
		path += "?flash=" + url.QueryEscape(msg)
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// splitHandles parses the comma-separated competitor list.
func splitHandles(raw string) []string {
	var handles []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			handles = append(handles, part)
		}
	}
	return handles
}
