package domain

import "sync"

// WorkingSet is the deduplicated FIFO queue of recipient identifiers still
// pending a message. Recipients are consumed permanently: once popped they
// never re-enter the queue, so a recipient receives at most one message per
// run. The set is written by the harvest path and consumed by the campaign
// scheduler's goroutine; the mutex makes that sharing explicit.
type WorkingSet struct {
	mu    sync.Mutex
	queue []string
	seen  map[string]struct{}
}

// NewWorkingSet creates an empty working set.
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{seen: make(map[string]struct{})}
}

// Push adds a recipient identifier to the back of the queue. Returns false
// if the identifier is empty or was already seen (including identifiers
// that have since been popped).
func (s *WorkingSet) Push(id string) bool {
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.queue = append(s.queue, id)
	return true
}

// PushAll pushes each identifier and returns how many were newly added.
func (s *WorkingSet) PushAll(ids []string) int {
	added := 0
	for _, id := range ids {
		if s.Push(id) {
			added++
		}
	}
	return added
}

// Pop removes and returns the identifier at the front of the queue.
// The second return value is false when the queue is empty.
func (s *WorkingSet) Pop() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return "", false
	}
	id := s.queue[0]
	s.queue = s.queue[1:]
	return id, true
}

// Len returns the number of recipients still queued.
func (s *WorkingSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
