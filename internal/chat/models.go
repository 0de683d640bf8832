package chat

import (
	"context"
	"fmt"

	"github.com/rcliao/gchat/internal/settings"
)

// ModelLister fetches the model names a backend currently offers.
type ModelLister interface {
	ListModels(ctx context.Context, apiKey string) ([]string, error)
}

// ReconcileModels merges a fetched name list into the stored list in one
// pass. Stored models missing from fetched become stale and inactive;
// stale models fetched again become ok; fetched names not yet stored are
// appended as new, inactive and not favorite.
func ReconcileModels(stored []settings.ModelInfo, fetched []string) []settings.ModelInfo {
	present := make(map[string]bool, len(fetched))
	for _, name := range fetched {
		present[name] = true
	}

	out := make([]settings.ModelInfo, 0, len(stored)+len(fetched))
	have := make(map[string]bool, len(stored))
	for _, m := range stored {
		have[m.Name] = true
		switch {
		case !present[m.Name]:
			m.Status = settings.StatusStale
			m.IsActive = false
		case m.Status == settings.StatusStale:
			m.Status = settings.StatusOK
		}
		out = append(out, m)
	}
	for _, name := range fetched {
		if have[name] {
			continue
		}
		have[name] = true
		out = append(out, settings.ModelInfo{Name: name, Status: settings.StatusNew})
	}
	return out
}

// RefreshModels fetches the backend's models with the default key and
// writes the reconciled list back in a single update.
func (m *Manager) RefreshModels(ctx context.Context, lister ModelLister) ([]settings.ModelInfo, error) {
	key, ok := m.settings.DefaultAPIKey()
	if !ok {
		return nil, fmt.Errorf("refresh models: %w", settings.ErrNoAPIKey)
	}
	names, err := lister.ListModels(ctx, key.Key)
	if err != nil {
		return nil, fmt.Errorf("refresh models: %w", err)
	}

	merged := ReconcileModels(m.settings.Get().Models.List, names)
	if err := m.settings.SetModels(ctx, merged); err != nil {
		return nil, fmt.Errorf("refresh models: %w", err)
	}
	m.logger.Info("models refreshed", "fetched", len(names), "total", len(merged))
	return merged, nil
}
