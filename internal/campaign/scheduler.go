package campaign

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mvidalr/gramreach/internal/domain"
	"github.com/mvidalr/gramreach/internal/events"
)

// ActivitySimulator runs one pass of organic-looking account activity.
type ActivitySimulator interface {
	Simulate(ctx context.Context)
}

// Scheduler owns the campaign state for one run: the working set, the
// total-sent counter, and the timer set that fires the engine. One cycle
// and one activity pass run immediately on start, then once per hour
// offset up to the configured duration. The whole schedule is cancellable;
// stopping interrupts even a mid-cycle pacing sleep.
type Scheduler struct {
	engine    *Engine
	simulator ActivitySimulator
	set       *domain.WorkingSet
	cfg       domain.RunConfig
	runID     string
	hub       *events.Hub
	logger    *slog.Logger

	// interval between schedule offsets; an hour outside of tests.
	interval time.Duration

	mu        sync.Mutex
	totalSent int
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScheduler creates a scheduler for one campaign run. simulator and hub
// may be nil.
func NewScheduler(engine *Engine, simulator ActivitySimulator, set *domain.WorkingSet, runID string, cfg domain.RunConfig, hub *events.Hub, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		engine:    engine,
		simulator: simulator,
		set:       set,
		cfg:       cfg,
		runID:     runID,
		hub:       hub,
		logger:    logger.With("component", "scheduler", "run_id", runID),
		interval:  time.Hour,
	}
}

// Start launches the campaign goroutine. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("scheduler already running")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.done = make(chan struct{})

	go s.run(ctx)
}

// Stop cancels the schedule. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Done returns a channel closed when the campaign goroutine exits.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Running reports whether the campaign goroutine is alive.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TotalSent returns the number of messages sent across all cycles so far.
func (s *Scheduler) TotalSent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSent
}

// QueueLen returns the number of recipients still pending.
func (s *Scheduler) QueueLen() int {
	return s.set.Len()
}

func (s *Scheduler) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		close(s.done)
		s.mu.Unlock()
		if s.hub != nil {
			s.hub.Publish(events.Event{Type: events.TypeCampaignStopped, RunID: s.runID, Sent: s.TotalSent()})
		}
		s.logger.Info("campaign finished", "total_sent", s.TotalSent(), "queued", s.set.Len())
	}()

	start := time.Now()
	s.logger.Info("campaign started",
		"duration_hours", s.cfg.DurationHours,
		"per_cycle", s.cfg.MessagesPerCycle,
		"total_target", s.cfg.TotalMessages,
		"queued", s.set.Len(),
	)

	// First cycle fires immediately, then one per offset.
	s.fire(ctx)

	for h := 1; h <= s.cfg.DurationHours; h++ {
		due := start.Add(time.Duration(h) * s.interval)
		timer := time.NewTimer(time.Until(due))

		select {
		case <-timer.C:
			s.fire(ctx)
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("campaign cancelled", "offset", h)
			return
		}
	}
}

// fire runs one engine cycle bounded by the remaining total-message budget,
// followed by an activity pass.
func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	remaining := s.cfg.TotalMessages - s.TotalSent()
	if remaining <= 0 {
		s.logger.Info("total message target reached, skipping cycle")
		return
	}

	maxSend := s.cfg.MessagesPerCycle
	if remaining < maxSend {
		maxSend = remaining
	}

	if s.hub != nil {
		s.hub.Publish(events.Event{Type: events.TypeCycleStarted, RunID: s.runID, Sent: s.TotalSent()})
	}

	sent := s.engine.RunCycle(ctx, s.runID, s.set, maxSend)

	s.mu.Lock()
	s.totalSent += sent
	total := s.totalSent
	s.mu.Unlock()

	s.logger.Info("cycle finished", "sent", sent, "total_sent", total, "queued", s.set.Len())
	if s.hub != nil {
		s.hub.Publish(events.Event{Type: events.TypeCycleFinished, RunID: s.runID, Sent: total})
	}

	if s.simulator != nil && ctx.Err() == nil {
		s.simulator.Simulate(ctx)
		if s.hub != nil {
			s.hub.Publish(events.Event{Type: events.TypeActivityPass, RunID: s.runID})
		}
	}
}
