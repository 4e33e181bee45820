// Package lifecycle provides the process-wide stop broadcast and the
// outstanding-children counter used to track ingestion goroutines.
package lifecycle

import "sync"

// State is shared by all source goroutines for the duration of a run.
// The stop broadcast is one-shot and idempotent; the counter tracks how many
// supervised goroutines are still live.
type State struct {
	mu       sync.Mutex
	cond     *sync.Cond
	children int

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New() *State {
	s := &State{stopCh: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Stop broadcasts the stop signal to every current and future waiter.
// Safe to call multiple times.
func (s *State) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// StopChan returns a channel that is closed once Stop has been called.
func (s *State) StopChan() <-chan struct{} { return s.stopCh }

// Stopped reports whether Stop has been called.
func (s *State) Stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// Enter registers one supervised goroutine. Must be called before the
// goroutine is spawned.
func (s *State) Enter() {
	s.mu.Lock()
	s.children++
	s.mu.Unlock()
}

// Leave unregisters one supervised goroutine and wakes Wait callers when the
// count reaches zero. Each goroutine must call Leave exactly once.
func (s *State) Leave() {
	s.mu.Lock()
	if s.children > 0 {
		s.children--
	}
	if s.children == 0 {
		s.cond.Broadcast()
	}
	s.mu.Unlock()
}

// Outstanding returns the current number of live supervised goroutines.
func (s *State) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.children
}

// Wait blocks until the outstanding count is zero. Returns immediately when
// nothing was ever registered.
func (s *State) Wait() {
	s.mu.Lock()
	for s.children > 0 {
		s.cond.Wait()
	}
	s.mu.Unlock()
}
