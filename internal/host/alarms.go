package host

import (
	"context"
	"sync"
	"time"
)

// TimerAlarms is an in-process Alarms implementation backed by
// time.AfterFunc. It stands in for the browser's alarms API when the daemon
// owns the clock, firing the callback with the alarm name on expiry.
type TimerAlarms struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
	fire    func(name string)
}

// NewTimerAlarms creates a TimerAlarms that invokes fire(name) when an alarm
// expires. fire runs on the timer goroutine.
func NewTimerAlarms(fire func(name string)) *TimerAlarms {
	return &TimerAlarms{
		pending: make(map[string]*time.Timer),
		fire:    fire,
	}
}

// Schedule arranges for fire(name) at the given time, replacing any pending
// alarm with the same name. Times in the past fire immediately.
func (a *TimerAlarms) Schedule(_ context.Context, name string, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if t, ok := a.pending[name]; ok {
		t.Stop()
	}
	a.pending[name] = time.AfterFunc(time.Until(at), func() {
		a.mu.Lock()
		delete(a.pending, name)
		a.mu.Unlock()
		a.fire(name)
	})
	return nil
}

// Clear cancels the pending alarm with the given name, if any.
func (a *TimerAlarms) Clear(_ context.Context, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if t, ok := a.pending[name]; ok {
		t.Stop()
		delete(a.pending, name)
	}
	return nil
}

// Stop cancels all pending alarms.
func (a *TimerAlarms) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, t := range a.pending {
		t.Stop()
		delete(a.pending, name)
	}
}
