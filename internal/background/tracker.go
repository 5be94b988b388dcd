package background

import (
	"sync"

	"github.com/Fdondi/MindfulTab/internal/host"
)

// Tracker is the in-memory picture of browser tab state, fed by the event
// stream. It exists because the daemon cannot query the browser
// synchronously; the extension streams tab events instead. Process restart
// clears it, which only costs one navigation of warm-up.
type Tracker struct {
	mu       sync.Mutex
	tabs     map[int]host.Tab
	lastURL  map[int]string
	activeID int
	hasFocus bool
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		tabs:    make(map[int]host.Tab),
		lastURL: make(map[int]string),
	}
}

// Observe records the latest snapshot of a tab.
func (t *Tracker) Observe(tab host.Tab) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tabs[tab.ID] = tab
}

// SetActive marks a tab as the focused one.
func (t *Tracker) SetActive(tabID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeID = tabID
	t.hasFocus = true
}

// Active returns the focused tab snapshot, or nil if unknown.
func (t *Tracker) Active() *host.Tab {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasFocus {
		return nil
	}
	tab, ok := t.tabs[t.activeID]
	if !ok {
		return nil
	}
	return &tab
}

// Get returns the snapshot for tabID, or nil if unknown.
func (t *Tracker) Get(tabID int) *host.Tab {
	t.mu.Lock()
	defer t.mu.Unlock()
	tab, ok := t.tabs[tabID]
	if !ok {
		return nil
	}
	return &tab
}

// LastURL returns the last URL recorded as visited for tabID.
func (t *Tracker) LastURL(tabID int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastURL[tabID]
}

// SetLastURL records the last visited URL for tabID, deduping repeat
// navigation-complete events for the same page.
func (t *Tracker) SetLastURL(tabID int, url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastURL[tabID] = url
}

// Forget drops all state for a closed tab.
func (t *Tracker) Forget(tabID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tabs, tabID)
	delete(t.lastURL, tabID)
	if t.activeID == tabID {
		t.hasFocus = false
	}
}
