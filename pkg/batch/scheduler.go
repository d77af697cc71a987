package batch

import (
	"sync"
	"time"
)

// Scheduler runs an action once after a delay. Scheduling again replaces any
// pending run, so there is never more than one outstanding timer.
// Schedule must not run the action on the calling goroutine.
type Scheduler interface {
	SetAction(action func())
	Schedule(delay time.Duration)
}

// TimerScheduler implements Scheduler with time.AfterFunc. The action runs on
// the timer goroutine.
type TimerScheduler struct {
	mu      sync.Mutex
	action  func()
	timer   *time.Timer
	stopped bool
}

// NewTimerScheduler creates a scheduler with no action.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

// SetAction sets the function run when the timer fires.
func (s *TimerScheduler) SetAction(action func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.action = action
}

// Schedule arms the timer, replacing a pending one.
func (s *TimerScheduler) Schedule(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.action == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	action := s.action
	s.timer = time.AfterFunc(delay, action)
}

// Stop cancels the pending run and ignores later Schedule calls.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
