// Package syncmon observes and reports the health of background
// replication against the remote sync service.
//
// The monitor is a small state machine fed by the remote service's
// state feed. It never mutates the item repository; local writes
// succeed regardless of replication state, and the sync layer catches
// up when connectivity returns.
package syncmon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayane-t/mochimono/internal/apperr"
)

// State is the replication health state.
type State string

const (
	// StateDisabled means sync is not configured or switched off.
	// Terminal for the process lifetime.
	StateDisabled State = "disabled"
	// StateDisconnected means no push/pull cycle is running and the
	// last one did not complete.
	StateDisconnected State = "disconnected"
	// StateSyncing means a push/pull cycle is in flight.
	StateSyncing State = "syncing"
	// StateConnected means the last cycle completed; the replica is
	// in sync.
	StateConnected State = "connected"
	// StateError means the remote service reported a failure.
	StateError State = "error"
)

// Status is a point-in-time view of replication health.
type Status struct {
	State State `json:"state"`
	// Message is human-readable and non-empty for StateError.
	Message string `json:"message,omitempty"`
	// ChangedAt is when this state was entered.
	ChangedAt time.Time `json:"changed_at"`
}

// Trigger requests a replication cycle from the remote service.
// Implemented by the feed client; failures surface asynchronously
// through the state feed.
type Trigger interface {
	TriggerSync(ctx context.Context) error
}

// Monitor tracks replication state and fans transitions out to
// subscribers.
type Monitor struct {
	mu      sync.Mutex
	status  Status
	subs    map[int]func(Status)
	nextSub int
	waiters []chan Status

	trigger Trigger
	logger  *slog.Logger
}

// New creates a monitor in the disconnected state. Pass nil for
// trigger when replication is not configured and use NewDisabled
// instead.
func New(trigger Trigger, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		status:  Status{State: StateDisconnected, ChangedAt: time.Now().UTC()},
		subs:    make(map[int]func(Status)),
		trigger: trigger,
		logger:  logger.With("component", "syncmon"),
	}
}

// NewDisabled creates a monitor permanently in the disabled state.
func NewDisabled(logger *slog.Logger) *Monitor {
	m := New(nil, logger)
	m.status.State = StateDisabled
	return m
}

// SetTrigger wires the replication trigger after construction. The
// feed client needs the monitor first, so the two are tied together
// in this order.
func (m *Monitor) SetTrigger(t Trigger) {
	m.mu.Lock()
	m.trigger = t
	m.mu.Unlock()
}

// GetStatus returns the current status.
func (m *Monitor) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// TriggerSync requests a replication cycle. Fire-and-forget: the
// request may fail asynchronously, in which case the failure arrives
// through the state feed as an error transition. On a disabled
// monitor this is a no-op.
func (m *Monitor) TriggerSync(ctx context.Context) error {
	m.mu.Lock()
	disabled := m.status.State == StateDisabled
	trigger := m.trigger
	m.mu.Unlock()

	if disabled || trigger == nil {
		m.logger.Debug("sync trigger ignored, replication disabled")
		return nil
	}
	if err := trigger.TriggerSync(ctx); err != nil {
		return fmt.Errorf("failed to request sync: %w", err)
	}
	return nil
}

// Subscribe registers a callback and returns an unsubscribe function.
// The callback fires once immediately with the current status, then
// on every transition.
//
// Callbacks run on the transition path and must never block: enqueue
// work, do not perform it.
func (m *Monitor) Subscribe(fn func(Status)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	current := m.status
	m.mu.Unlock()

	fn(current)

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// WaitForSync blocks until the monitor reaches connected or error, or
// the timeout elapses. A monitor already in a terminal-for-this-cycle
// state returns immediately. The timer is released on every path.
func (m *Monitor) WaitForSync(ctx context.Context, timeout time.Duration) (Status, error) {
	m.mu.Lock()
	switch m.status.State {
	case StateConnected, StateError, StateDisabled:
		st := m.status
		m.mu.Unlock()
		return st, nil
	}
	ch := make(chan Status, 1)
	m.waiters = append(m.waiters, ch)
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case st := <-ch:
		return st, nil
	case <-timer.C:
		m.dropWaiter(ch)
		return Status{}, fmt.Errorf("%w: no sync completion within %s", apperr.ErrSync, timeout)
	case <-ctx.Done():
		m.dropWaiter(ch)
		return Status{}, ctx.Err()
	}
}

func (m *Monitor) dropWaiter(ch chan Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.waiters {
		if w == ch {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}

// Apply records a state transition reported by the remote feed and
// notifies subscribers and waiters. Reports carrying the current state
// and message are dropped; a repeated state with a new message still
// notifies, so consecutive distinct errors are not lost. A disabled
// monitor ignores all transitions.
func (m *Monitor) Apply(state State, message string) {
	m.mu.Lock()
	if m.status.State == StateDisabled ||
		(m.status.State == state && m.status.Message == message) {
		m.mu.Unlock()
		return
	}

	m.status = Status{State: state, Message: message, ChangedAt: time.Now().UTC()}
	st := m.status

	subs := make([]func(Status), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}

	var waiters []chan Status
	if state == StateConnected || state == StateError {
		waiters = m.waiters
		m.waiters = nil
	}
	m.mu.Unlock()

	if state == StateError {
		m.logger.Warn("sync error", "message", message)
	} else {
		m.logger.Debug("sync state changed", "state", string(state))
	}

	for _, fn := range subs {
		fn(st)
	}
	for _, ch := range waiters {
		ch <- st
	}
}
