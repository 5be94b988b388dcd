package config

import (
	"context"

	"github.com/Fdondi/MindfulTab/internal/store"
)

// History modes control which visited-link sources the new-tab page surfaces.
const (
	HistoryModeExtensionOnly = "extension_only_history"
	HistoryModeBrowserAPI    = "browser_history_api"
	HistoryModeBoth          = "both_with_toggle"
)

// Thresholds are the karma scores at which a domain starts getting gated.
// Both values are negative; Hidden is expected to be at or below Warning,
// though nothing validates that ordering.
type Thresholds struct {
	Warning int `json:"warning"`
	Hidden  int `json:"hidden"`
}

// Settings are the user-facing extension settings, persisted in the
// key-value store under the "settings" key. Loaded values are merged over
// defaults field by field, so partially written settings stay usable.
type Settings struct {
	QuickDurationsMinutes []int      `json:"quickDurationsMinutes"`
	NudgeCooldownMinutes  int        `json:"nudgeCooldownMinutes"`
	HistoryMode           string     `json:"historyMode"`
	HideThresholds        Thresholds `json:"hideThresholds"`
}

// DefaultSettings returns the out-of-box settings.
func DefaultSettings() Settings {
	return Settings{
		QuickDurationsMinutes: []int{1, 2, 3},
		NudgeCooldownMinutes:  5,
		HistoryMode:           HistoryModeBoth,
		HideThresholds: Thresholds{
			Warning: -5,
			Hidden:  -15,
		},
	}
}

// LoadSettings reads settings from the store, merging over defaults.
func LoadSettings(ctx context.Context, s *store.Store) (Settings, error) {
	stored := Settings{}
	found, err := s.Get(ctx, store.KeySettings, &stored)
	if err != nil {
		return DefaultSettings(), err
	}
	if !found {
		return DefaultSettings(), nil
	}
	return mergeSettings(DefaultSettings(), stored), nil
}

// SaveSettings persists settings to the store.
func SaveSettings(ctx context.Context, s *store.Store, settings Settings) error {
	return s.Set(ctx, store.KeySettings, settings)
}

// mergeSettings overlays stored values onto defaults, keeping defaults for
// zero-valued fields.
func mergeSettings(base, overlay Settings) Settings {
	result := base
	if len(overlay.QuickDurationsMinutes) > 0 {
		result.QuickDurationsMinutes = overlay.QuickDurationsMinutes
	}
	if overlay.NudgeCooldownMinutes != 0 {
		result.NudgeCooldownMinutes = overlay.NudgeCooldownMinutes
	}
	if overlay.HistoryMode != "" {
		result.HistoryMode = overlay.HistoryMode
	}
	if overlay.HideThresholds.Warning != 0 || overlay.HideThresholds.Hidden != 0 {
		result.HideThresholds = overlay.HideThresholds
	}
	return result
}
