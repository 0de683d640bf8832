package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/rcliao/gchat/internal/model"
)

// KV is the scalar storage the manager persists the blob into.
type KV interface {
	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
}

// Manager owns the in-memory settings and writes every change through
// to storage immediately.
type Manager struct {
	mu     sync.Mutex
	kv     KV
	cur    Settings
	logger *slog.Logger

	// fallbackKey is used when no key is stored. It is never persisted.
	fallbackKey string
}

// NewManager returns a manager holding defaults until Load is called.
// A nil logger discards output.
func NewManager(kv KV, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{kv: kv, cur: Defaults(), logger: logger}
}

// Load reads the stored blob and merges it over defaults. A corrupt blob
// is logged and replaced by defaults in memory; only storage failures
// are returned.
func (m *Manager) Load(ctx context.Context) error {
	raw, _, err := m.kv.GetValue(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	s, err := Merge(Defaults(), []byte(raw))
	var perr *ConfigParseError
	if errors.As(err, &perr) {
		m.logger.Error("could not parse settings, using defaults", "err", perr.Err)
	}

	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()
	m.logger.Debug("settings loaded", "api_keys", len(s.APIKeys), "models", len(s.Models.List))
	return nil
}

// Get returns a snapshot safe to read without further locking.
func (m *Manager) Get() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur.clone()
}

// Update applies fn to a copy of the settings and persists the result.
// If fn or the write fails, the in-memory settings are left unchanged.
func (m *Manager) Update(ctx context.Context, fn func(*Settings) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.cur.clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.APIKeys = normalizeKeys(next.APIKeys)
	next.SchemaVersion = SchemaVersion

	if err := m.save(ctx, next); err != nil {
		return err
	}
	m.cur = next
	return nil
}

func (m *Manager) save(ctx context.Context, s Settings) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := m.kv.SetValue(ctx, StorageKey, string(b)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	m.logger.Debug("settings saved")
	return nil
}

// ReplaceRaw overwrites the whole blob, as settings import does. The blob
// is merged onto defaults so missing fields get their default value.
func (m *Manager) ReplaceRaw(ctx context.Context, blob []byte) error {
	s, err := Merge(Defaults(), blob)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.save(ctx, s); err != nil {
		return err
	}
	m.cur = s
	return nil
}

// AddAPIKey appends a key; the first key added becomes the default.
func (m *Manager) AddAPIKey(ctx context.Context, name, key string) (APIKey, error) {
	k := APIKey{ID: uuid.NewString(), Name: name, Key: key}
	err := m.Update(ctx, func(s *Settings) error {
		k.IsDefault = len(s.APIKeys) == 0
		s.APIKeys = append(s.APIKeys, k)
		return nil
	})
	return k, err
}

// DeleteAPIKey removes a key. If it was the default, the first remaining
// key is promoted.
func (m *Manager) DeleteAPIKey(ctx context.Context, id string) error {
	return m.Update(ctx, func(s *Settings) error {
		keys := s.APIKeys[:0]
		found := false
		for _, k := range s.APIKeys {
			if k.ID == id {
				found = true
				continue
			}
			keys = append(keys, k)
		}
		if !found {
			return ErrAPIKeyNotFound
		}
		s.APIKeys = keys
		return nil
	})
}

// SetDefaultAPIKey makes id the only default key.
func (m *Manager) SetDefaultAPIKey(ctx context.Context, id string) error {
	return m.Update(ctx, func(s *Settings) error {
		found := false
		for i := range s.APIKeys {
			s.APIKeys[i].IsDefault = s.APIKeys[i].ID == id
			found = found || s.APIKeys[i].IsDefault
		}
		if !found {
			return ErrAPIKeyNotFound
		}
		return nil
	})
}

// FallbackKeyID is the id DefaultAPIKey reports for the fallback key.
const FallbackKeyID = "fallback"

// SetFallbackKey sets a key, typically from the environment, to use
// while the settings hold none.
func (m *Manager) SetFallbackKey(key string) {
	m.mu.Lock()
	m.fallbackKey = key
	m.mu.Unlock()
}

// DefaultAPIKey returns the default key, or the first if none is marked,
// or the fallback key when none are stored.
func (m *Manager) DefaultAPIKey() (APIKey, bool) {
	if k, ok := m.Get().DefaultAPIKey(); ok {
		return k, true
	}
	return m.fallback()
}

func (m *Manager) fallback() (APIKey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fallbackKey == "" {
		return APIKey{}, false
	}
	return APIKey{ID: FallbackKeyID, Name: FallbackKeyID, Key: m.fallbackKey, IsDefault: true}, true
}

// ResolveAPIKey returns the key with the given id, or the default key
// when id is empty. FallbackKeyID selects the fallback key unless a
// stored key has that id.
func (m *Manager) ResolveAPIKey(id string) (APIKey, error) {
	if id == "" {
		k, ok := m.DefaultAPIKey()
		if !ok {
			return APIKey{}, ErrNoAPIKey
		}
		return k, nil
	}
	for _, k := range m.Get().APIKeys {
		if k.ID == id {
			return k, nil
		}
	}
	if id == FallbackKeyID {
		if k, ok := m.fallback(); ok {
			return k, nil
		}
	}
	return APIKey{}, fmt.Errorf("resolve key %s: %w", id, ErrAPIKeyNotFound)
}

// SetModels replaces the model list in one write.
func (m *Manager) SetModels(ctx context.Context, list []ModelInfo) error {
	return m.Update(ctx, func(s *Settings) error {
		s.Models.List = append([]ModelInfo{}, list...)
		return nil
	})
}

// SetModelFlags changes a model's active and favorite flags; nil leaves a
// flag as is. Activating a new model marks it ok. Stale models cannot be
// changed.
func (m *Manager) SetModelFlags(ctx context.Context, name string, active, favorite *bool) error {
	return m.Update(ctx, func(s *Settings) error {
		for i := range s.Models.List {
			mi := &s.Models.List[i]
			if mi.Name != name {
				continue
			}
			if mi.Status == StatusStale {
				return fmt.Errorf("set model %s: %w", name, ErrModelStale)
			}
			if favorite != nil {
				mi.IsFavorite = *favorite
			}
			if active != nil {
				mi.IsActive = *active
				if mi.IsActive && mi.Status == StatusNew {
					mi.Status = StatusOK
				}
			}
			return nil
		}
		return fmt.Errorf("set model %s: %w", name, ErrModelNotFound)
	})
}

// DeleteModel removes a model from the list.
func (m *Manager) DeleteModel(ctx context.Context, name string) error {
	return m.Update(ctx, func(s *Settings) error {
		list := s.Models.List[:0]
		for _, mi := range s.Models.List {
			if mi.Name != name {
				list = append(list, mi)
			}
		}
		if len(list) == len(s.Models.List) {
			return fmt.Errorf("delete model %s: %w", name, ErrModelNotFound)
		}
		s.Models.List = list
		return nil
	})
}

// ActiveModels returns active models, favorites first.
func (m *Manager) ActiveModels() []ModelInfo {
	return m.Get().ActiveModels()
}

// AddFolder creates a folder with a fresh id.
func (m *Manager) AddFolder(ctx context.Context, name string) (model.Folder, error) {
	f := model.Folder{ID: uuid.NewString(), Name: name}
	err := m.Update(ctx, func(s *Settings) error {
		s.Folders = append(s.Folders, f)
		return nil
	})
	return f, err
}

// RenameFolder changes a folder's name.
func (m *Manager) RenameFolder(ctx context.Context, id, name string) error {
	return m.Update(ctx, func(s *Settings) error {
		for i := range s.Folders {
			if s.Folders[i].ID == id {
				s.Folders[i].Name = name
				return nil
			}
		}
		return ErrFolderNotFound
	})
}

// DeleteFolder removes a folder from the list. Chats referencing it are
// not touched here.
func (m *Manager) DeleteFolder(ctx context.Context, id string) error {
	return m.Update(ctx, func(s *Settings) error {
		folders := s.Folders[:0]
		for _, f := range s.Folders {
			if f.ID != id {
				folders = append(folders, f)
			}
		}
		if len(folders) == len(s.Folders) {
			return ErrFolderNotFound
		}
		s.Folders = folders
		return nil
	})
}

// ErrUnknownField is returned by SetField for names not in the blob.
var ErrUnknownField = errors.New("unknown settings field")

// SetField sets one top-level field by its JSON name. value is parsed as
// JSON when possible and taken as a plain string otherwise.
func (m *Manager) SetField(ctx context.Context, name, value string) error {
	return m.Update(ctx, func(s *Settings) error {
		cur, err := json.Marshal(s)
		if err != nil {
			return err
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(cur, &fields); err != nil {
			return err
		}
		if _, ok := fields[name]; !ok || name == "schemaVersion" {
			return fmt.Errorf("set %s: %w", name, ErrUnknownField)
		}

		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		patch, err := json.Marshal(map[string]any{name: v})
		if err != nil {
			return err
		}
		if err := json.Unmarshal(patch, s); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
		return nil
	})
}
