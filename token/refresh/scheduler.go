package refresh

import (
	"sync"
	"time"
)

// Timer is a handle to one pending refresh.
type Timer interface {
	// Stop prevents the refresh from firing. It reports false if the
	// refresh already fired or was stopped.
	Stop() bool
}

// Scheduler creates refresh timers.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ClockScheduler arms real wall-clock timers.
var ClockScheduler Scheduler = clockScheduler{}

// InertScheduler never starts a wall-clock timer. It records what would have
// been scheduled so tests can inspect and fire it by hand.
type InertScheduler struct {
	mu     sync.Mutex
	timers []*InertTimer
}

var _ Scheduler = (*InertScheduler)(nil)

func NewInertScheduler() *InertScheduler {
	return &InertScheduler{}
}

func (s *InertScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &InertTimer{scheduler: s, Delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

// Live returns the timers that are neither stopped nor fired.
func (s *InertScheduler) Live() []*InertTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := make([]*InertTimer, 0, 1)
	for _, t := range s.timers {
		if !t.done {
			live = append(live, t)
		}
	}
	return live
}

// Scheduled returns how many timers were ever created.
func (s *InertScheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// InertTimer is a recorded, never self-firing timer.
type InertTimer struct {
	scheduler *InertScheduler
	Delay     time.Duration
	fn        func()
	done      bool
}

func (t *InertTimer) Stop() bool {
	t.scheduler.mu.Lock()
	defer t.scheduler.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	return true
}

// Fire runs the callback synchronously as if the delay had elapsed.
// It reports false if the timer was already stopped or fired.
func (t *InertTimer) Fire() bool {
	t.scheduler.mu.Lock()
	if t.done {
		t.scheduler.mu.Unlock()
		return false
	}
	t.done = true
	t.scheduler.mu.Unlock()

	t.fn()
	return true
}
