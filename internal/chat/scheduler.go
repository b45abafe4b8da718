package chat

import (
	"sync"
	"time"
)

// ManualScheduler queues scheduled callbacks until Fire or FireAll is called.
// It lets callers drive completions synchronously.
type ManualScheduler struct {
	mu      sync.Mutex
	nextID  int
	pending []manualTask
}

type manualTask struct {
	id    int
	delay time.Duration
	fn    func()
}

func (s *ManualScheduler) Schedule(delay time.Duration, fn func()) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.pending = append(s.pending, manualTask{id: id, delay: delay, fn: fn})
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, t := range s.pending {
			if t.id == id {
				s.pending = append(s.pending[:i], s.pending[i+1:]...)
				return
			}
		}
	}
}

// Pending returns the number of queued callbacks.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// LastDelay returns the delay of the most recently queued callback.
func (s *ManualScheduler) LastDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return 0
	}
	return s.pending[len(s.pending)-1].delay
}

// Fire runs the oldest queued callback and reports whether one ran.
func (s *ManualScheduler) Fire() bool {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return false
	}
	task := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()
	task.fn()
	return true
}

// FireAll drains the queue, including callbacks scheduled while draining.
func (s *ManualScheduler) FireAll() int {
	n := 0
	for s.Fire() {
		n++
	}
	return n
}
