// Package campaign implements the outreach pacing engine and the scheduler
// that fires it across the campaign window.
package campaign

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/mvidalr/gramreach/internal/compose"
	"github.com/mvidalr/gramreach/internal/domain"
	"github.com/mvidalr/gramreach/internal/events"
	"github.com/mvidalr/gramreach/internal/platform"
	"github.com/mvidalr/gramreach/internal/store"
)

// Pacing bounds the engine's delays.
type Pacing struct {
	// MinSendDelay and MaxSendDelay bound the randomized pause after each
	// successful send.
	MinSendDelay time.Duration
	MaxSendDelay time.Duration

	// RateLimitBackoff is the fixed pause after a rate-limited send.
	RateLimitBackoff time.Duration
}

// Engine runs one send cycle at a time: pop a recipient, fetch the profile,
// compose, send, pace. Nothing in a cycle is allowed to terminate the
// campaign goroutine: every external failure becomes a skip, a fallback,
// or a backoff.
type Engine struct {
	client   platform.Client
	composer *compose.Composer
	repo     store.Repository
	hub      *events.Hub
	pacing   Pacing
	logger   *slog.Logger

	// sleep pauses for d, returning false if ctx was cancelled first.
	// Overridable in tests.
	sleep func(ctx context.Context, d time.Duration) bool

	// jitter picks the post-send delay within the pacing bounds.
	// Overridable in tests.
	jitter func(min, max time.Duration) time.Duration
}

// NewEngine creates an engine. repo and hub may be nil; delivery recording
// and event publishing are then skipped.
func NewEngine(client platform.Client, composer *compose.Composer, repo store.Repository, hub *events.Hub, pacing Pacing, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:   client,
		composer: composer,
		repo:     repo,
		hub:      hub,
		pacing:   pacing,
		logger:   logger.With("component", "engine"),
		sleep:    sleepCtx,
		jitter:   randomDelay,
	}
}

// RunCycle sends up to maxSend messages from the working set and returns
// how many went out. Recipients without a biography are skipped without
// counting against the cap or triggering a delay. An exhausted working set
// ends the cycle early; that is normal, not an error.
func (e *Engine) RunCycle(ctx context.Context, runID string, set *domain.WorkingSet, maxSend int) int {
	sent := 0

	for sent < maxSend {
		if ctx.Err() != nil {
			return sent
		}

		recipientID, ok := set.Pop()
		if !ok {
			e.logger.Info("working set exhausted", "run_id", runID, "sent", sent)
			break
		}

		profile, err := e.client.UserInfo(ctx, recipientID)
		if err != nil {
			e.logger.Warn("failed to fetch profile, skipping recipient",
				"run_id", runID, "recipient", recipientID, "error", err)
			continue
		}
		if strings.TrimSpace(profile.Biography) == "" {
			e.logger.Debug("recipient has no biography, skipping",
				"run_id", runID, "recipient", recipientID)
			continue
		}

		message := e.composer.Compose(ctx, profile.DisplayName(), profile.Biography)

		if err := e.client.DirectSend(ctx, recipientID, message); err != nil {
			e.logger.Warn("failed to send message",
				"run_id", runID, "recipient", recipientID, "error", err)
			e.publish(events.Event{Type: events.TypeSendFailed, RunID: runID, Recipient: recipientID, Detail: err.Error()})

			if platform.IsRateLimited(err) {
				e.logger.Warn("rate limited, backing off",
					"run_id", runID, "backoff", e.pacing.RateLimitBackoff)
				e.publish(events.Event{Type: events.TypeRateLimitBackoff, RunID: runID, Detail: e.pacing.RateLimitBackoff.String()})
				if !e.sleep(ctx, e.pacing.RateLimitBackoff) {
					return sent
				}
			}
			continue
		}

		sent++
		e.logger.Info("message sent",
			"run_id", runID, "recipient", recipientID, "name", profile.DisplayName(), "sent", sent)
		e.record(ctx, runID, recipientID, profile.DisplayName(), message)
		e.publish(events.Event{Type: events.TypeMessageSent, RunID: runID, Recipient: recipientID, Sent: sent})

		if sent < maxSend && set.Len() > 0 {
			if !e.sleep(ctx, e.jitter(e.pacing.MinSendDelay, e.pacing.MaxSendDelay)) {
				return sent
			}
		}
	}

	return sent
}

func (e *Engine) record(ctx context.Context, runID, recipientID, name, message string) {
	if e.repo == nil {
		return
	}
	d := &store.Delivery{
		RunID:         runID,
		RecipientID:   recipientID,
		RecipientName: name,
		Message:       message,
		SentAt:        time.Now(),
	}
	if err := e.repo.RecordDelivery(ctx, d); err != nil {
		e.logger.Warn("failed to record delivery", "run_id", runID, "recipient", recipientID, "error", err)
	}
}

func (e *Engine) publish(ev events.Event) {
	if e.hub != nil {
		e.hub.Publish(ev)
	}
}

// sleepCtx pauses for d, returning false if the context was cancelled
// before the delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// randomDelay picks a uniform delay in [min, max].
func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
