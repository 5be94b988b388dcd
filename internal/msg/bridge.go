package msg

import (
	"context"
	"sync"

	"github.com/Fdondi/MindfulTab/internal/background"
	"github.com/Fdondi/MindfulTab/internal/errors"
	"github.com/Fdondi/MindfulTab/internal/host"
)

// TabBridge implements host.Tabs over a native-messaging connection. Reads
// are answered from the event-fed tracker (the daemon cannot query the
// browser synchronously); navigations are pushed as outbound commands.
type TabBridge struct {
	tracker *background.Tracker
	push    func(Request) error
}

// NewTabBridge creates a TabBridge. push sends an outbound message to the
// extension; a nil push makes Navigate fail as host-unavailable.
func NewTabBridge(tracker *background.Tracker, push func(Request) error) *TabBridge {
	return &TabBridge{tracker: tracker, push: push}
}

// SetPush attaches the outbound writer once a connection exists.
func (b *TabBridge) SetPush(push func(Request) error) {
	b.push = push
}

// ActiveTab implements host.Tabs from the tracker cache.
func (b *TabBridge) ActiveTab(context.Context) (*host.Tab, error) {
	return b.tracker.Active(), nil
}

// Get implements host.Tabs from the tracker cache.
func (b *TabBridge) Get(_ context.Context, id int) (*host.Tab, error) {
	return b.tracker.Get(id), nil
}

// NavigatePayload is the outbound navigate-tab command payload.
type NavigatePayload struct {
	TabID int    `json:"tabId"`
	URL   string `json:"url"`
}

// Navigate implements host.Tabs by pushing a navigate-tab command.
func (b *TabBridge) Navigate(_ context.Context, id int, url string) error {
	if b.push == nil {
		return errors.NewHostUnavailable("navigate-tab", nil)
	}
	payload, err := encodePayload(NavigatePayload{TabID: id, URL: url})
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := b.push(Request{Type: TypeNavigateTab, Payload: payload}); err != nil {
		return errors.NewHostUnavailable("navigate-tab", err)
	}
	return nil
}

// HistoryCache implements host.History over snapshots the extension pushes.
// The browser history API cannot be called from here, so the extension
// periodically sends its results and hydration reads the latest snapshot.
type HistoryCache struct {
	mu    sync.Mutex
	items []host.HistoryItem
}

// NewHistoryCache creates an empty cache.
func NewHistoryCache() *HistoryCache {
	return &HistoryCache{}
}

// Replace swaps in a new snapshot.
func (c *HistoryCache) Replace(items []host.HistoryItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make([]host.HistoryItem, len(items))
	copy(c.items, items)
}

// Search implements host.History from the cached snapshot.
func (c *HistoryCache) Search(_ context.Context, maxResults int) ([]host.HistoryItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.items
	if maxResults > 0 && len(items) > maxResults {
		items = items[:maxResults]
	}
	out := make([]host.HistoryItem, len(items))
	copy(out, items)
	return out, nil
}
