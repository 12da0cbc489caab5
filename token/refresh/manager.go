package refresh

import (
	"sync"
	"time"
)

// FireFunc runs when a scheduled refresh is due. gen identifies the arm that
// produced it and can be handed back to ArmIfCurrent.
type FireFunc func(gen uint64, d Decision, req Request)

// Manager owns the single refresh timer for a session. Arming always stops
// the previous timer first, so at most one refresh is ever pending.
type Manager struct {
	mu         sync.Mutex
	policy     Policy
	scheduler  Scheduler
	nowFunc    func() time.Time
	timer      Timer
	generation uint64
}

type ManagerOption func(*Manager)

func WithScheduler(s Scheduler) ManagerOption {
	return func(m *Manager) {
		m.scheduler = s
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// NewManager creates a refresh manager that arms real timers unless
// WithScheduler says otherwise.
func NewManager(policy Policy, options ...ManagerOption) *Manager {
	m := &Manager{policy: policy}
	for _, opt := range options {
		opt(m)
	}
	if m.scheduler == nil {
		m.scheduler = ClockScheduler
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// Policy returns the policy the manager was built with.
func (m *Manager) Policy() Policy {
	return m.policy
}

// Arm cancels any pending refresh and, if the policy allows, schedules fire.
func (m *Manager) Arm(req Request, fire FireFunc) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armLocked(req, fire)
}

// ArmIfCurrent behaves like Arm unless the manager was cancelled or re-armed
// after gen was issued, in which case nothing is scheduled and ok is false.
// commit, when non-nil, runs after arming with the manager still locked, so a
// concurrent Cancel either lands before the generation check or waits for
// commit to return. commit must not call back into the Manager.
func (m *Manager) ArmIfCurrent(gen uint64, req Request, fire FireFunc, commit func(Decision)) (d Decision, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return Decision{}, false
	}
	d = m.armLocked(req, fire)
	if commit != nil {
		commit(d)
	}
	return d, true
}

// Cancel stops the pending refresh. It reports whether one was pending.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	pending := m.timer != nil
	m.stopLocked()
	return pending
}

// Pending reports whether a refresh is armed and has not fired yet.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer != nil
}

// Generation returns the current arm generation.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

func (m *Manager) armLocked(req Request, fire FireFunc) Decision {
	m.stopLocked()

	d := m.policy.Decide(m.nowFunc(), req)
	if !d.Arm {
		return d
	}

	gen := m.generation
	m.timer = m.scheduler.AfterFunc(d.Wait, func() {
		if !m.claim(gen) {
			return
		}
		fire(gen, d, req)
	})
	return d
}

func (m *Manager) stopLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.generation++
}

// claim consumes the pending timer for gen. A timer that fired after being
// replaced or cancelled loses the claim and does nothing.
func (m *Manager) claim(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation || m.timer == nil {
		return false
	}
	m.timer = nil
	return true
}
