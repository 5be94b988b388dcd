// Package host declares the extension-host collaborators the core depends
// on: tabs, alarms, notifications, and the browser history API. The daemon
// never talks to the browser directly; implementations either bridge over
// the native-messaging connection or run in-process (alarms).
package host

import (
	"context"
	"time"
)

// Tab is a snapshot of one browser tab.
type Tab struct {
	ID    int    `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Tabs exposes the tab operations the core needs. All calls are best-effort:
// a tab can vanish between the event that named it and the call that uses it.
type Tabs interface {
	// ActiveTab returns the currently focused tab, or nil if unknown.
	ActiveTab(ctx context.Context) (*Tab, error)

	// Get returns the tab with the given id.
	Get(ctx context.Context, id int) (*Tab, error)

	// Navigate points the tab at url.
	Navigate(ctx context.Context, id int, url string) error
}

// Alarms schedules named wake-ups. Scheduling a name that already exists
// replaces the prior alarm.
type Alarms interface {
	Schedule(ctx context.Context, name string, at time.Time) error
	Clear(ctx context.Context, name string) error
}

// Notifier shows a user-visible notification. Failures are non-fatal
// everywhere the core calls this.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// HistoryItem is one entry from the browser's own history API.
type HistoryItem struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	VisitCount    int    `json:"visitCount"`
	LastVisitTime int64  `json:"lastVisitTime"` // epoch milliseconds
}

// History exposes the browser history search used for hydration.
type History interface {
	Search(ctx context.Context, maxResults int) ([]HistoryItem, error)
}
