package karma

import (
	"context"

	"github.com/Fdondi/MindfulTab/internal/store"
)

// OptOuts is the set of domains exempt from penalties and gating. Membership
// has no expiry; it is toggled explicitly from the settings page.
type OptOuts struct {
	store *store.Store
}

// NewOptOuts creates an OptOuts set over the given store.
func NewOptOuts(s *store.Store) *OptOuts {
	return &OptOuts{store: s}
}

// Contains reports whether domain is opted out.
func (o *OptOuts) Contains(ctx context.Context, domain string) (bool, error) {
	key := Normalize(domain)
	if key == "" {
		return false, nil
	}
	set, err := o.All(ctx)
	if err != nil {
		return false, err
	}
	return set[key], nil
}

// All returns the full opt-out set as a domain→true map.
func (o *OptOuts) All(ctx context.Context) (map[string]bool, error) {
	set := map[string]bool{}
	if _, err := o.store.Get(ctx, store.KeyOptOutDomains, &set); err != nil {
		return nil, err
	}
	return set, nil
}

// Set toggles domain's membership. Removal deletes the key instead of
// storing false, keeping the stored set minimal.
func (o *OptOuts) Set(ctx context.Context, domain string, optedOut bool) error {
	key := Normalize(domain)
	if key == "" {
		return nil
	}
	set, err := o.All(ctx)
	if err != nil {
		return err
	}
	if optedOut {
		set[key] = true
	} else {
		delete(set, key)
	}
	return o.store.Set(ctx, store.KeyOptOutDomains, set)
}
