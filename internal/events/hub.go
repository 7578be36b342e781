// Package events provides an in-process feed of campaign progress events
// and a WebSocket handler that streams them to the form UI.
package events

import (
	"sync"
	"time"
)

// Event types published by the campaign path.
const (
	TypeHarvestDone      = "harvest_done"
	TypeCycleStarted     = "cycle_started"
	TypeCycleFinished    = "cycle_finished"
	TypeMessageSent      = "message_sent"
	TypeSendFailed       = "send_failed"
	TypeRateLimitBackoff = "rate_limit_backoff"
	TypeActivityPass     = "activity_pass"
	TypeCampaignStopped  = "campaign_stopped"
)

// Event is one campaign progress notification.
type Event struct {
	Type      string    `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Recipient string    `json:"recipient,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Sent      int       `json:"sent,omitempty"`
	At        time.Time `json:"at"`
}

// Hub fans events out to subscribers. Publish never blocks: slow
// subscribers drop events rather than stalling the campaign goroutine.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Publish delivers the event to all current subscribers. Events for
// subscribers with full buffers are dropped.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel function must
// be called to release it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount returns how many subscribers are registered.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
