// Package hosttest provides recording fakes for the host collaborators.
package hosttest

import (
	"context"
	"sync"
	"time"

	"github.com/Fdondi/MindfulTab/internal/host"
)

// Tabs is a fake host.Tabs. Populate Tabs by ID and set Active to control
// ActiveTab. Navigations are recorded.
type Tabs struct {
	mu          sync.Mutex
	Tabs        map[int]*host.Tab
	Active      *host.Tab
	Navigations []Navigation

	// Err, when set, is returned from every call.
	Err error
}

// Navigation records one Navigate call.
type Navigation struct {
	TabID int
	URL   string
}

// NewTabs creates an empty fake.
func NewTabs() *Tabs {
	return &Tabs{Tabs: make(map[int]*host.Tab)}
}

// ActiveTab implements host.Tabs.
func (f *Tabs) ActiveTab(context.Context) (*host.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Active, nil
}

// Get implements host.Tabs.
func (f *Tabs) Get(_ context.Context, id int) (*host.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Tabs[id], nil
}

// Navigate implements host.Tabs.
func (f *Tabs) Navigate(_ context.Context, id int, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Navigations = append(f.Navigations, Navigation{TabID: id, URL: url})
	if tab, ok := f.Tabs[id]; ok {
		tab.URL = url
	}
	return nil
}

// Navigated returns a copy of recorded navigations.
func (f *Tabs) Navigated() []Navigation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Navigation, len(f.Navigations))
	copy(out, f.Navigations)
	return out
}

// Alarms is a fake host.Alarms recording the latest schedule per name.
type Alarms struct {
	mu        sync.Mutex
	Scheduled map[string]time.Time
	Cleared   []string
}

// NewAlarms creates an empty fake.
func NewAlarms() *Alarms {
	return &Alarms{Scheduled: make(map[string]time.Time)}
}

// Schedule implements host.Alarms.
func (f *Alarms) Schedule(_ context.Context, name string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Scheduled[name] = at
	return nil
}

// Clear implements host.Alarms.
func (f *Alarms) Clear(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Scheduled, name)
	f.Cleared = append(f.Cleared, name)
	return nil
}

// ScheduledAt returns the pending time for name, if any.
func (f *Alarms) ScheduledAt(name string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.Scheduled[name]
	return at, ok
}

// Notifier is a fake host.Notifier recording messages.
type Notifier struct {
	mu       sync.Mutex
	Messages []string

	// Err, when set, is returned from Notify.
	Err error
}

// Notify implements host.Notifier.
func (f *Notifier) Notify(_ context.Context, _, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Messages = append(f.Messages, message)
	return nil
}

// Count returns how many notifications were recorded.
func (f *Notifier) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Messages)
}

// History is a fake host.History serving fixed items.
type History struct {
	Items []host.HistoryItem
	Err   error
}

// Search implements host.History.
func (f *History) Search(_ context.Context, maxResults int) ([]host.HistoryItem, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	items := f.Items
	if maxResults > 0 && len(items) > maxResults {
		items = items[:maxResults]
	}
	return items, nil
}
