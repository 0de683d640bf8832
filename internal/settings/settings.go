// Package settings holds the user configuration blob: API keys, models,
// folders and generation defaults.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rcliao/gchat/internal/model"
)

// StorageKey is the KV key the settings blob lives under.
const StorageKey = "gChatSettings"

// SchemaVersion is stamped into every saved blob.
const SchemaVersion = 1

var (
	ErrAPIKeyNotFound = errors.New("api key not found")
	ErrNoAPIKey       = errors.New("no api key configured")
	ErrModelNotFound  = errors.New("model not found")
	ErrModelStale     = errors.New("model is stale")
	ErrFolderNotFound = errors.New("folder not found")
)

// ConfigParseError reports a settings blob that could not be decoded.
type ConfigParseError struct {
	Err error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("parse settings: %v", e.Err)
}

func (e *ConfigParseError) Unwrap() error { return e.Err }

// ModelStatus tracks whether a model is still offered by the backend.
type ModelStatus string

const (
	StatusOK    ModelStatus = "ok"
	StatusNew   ModelStatus = "new"
	StatusStale ModelStatus = "stale"
)

// APIKey is a named backend credential.
type APIKey struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Key       string `json:"key"`
	IsDefault bool   `json:"isDefault"`
}

// ModelInfo is one model entry in the user's list.
type ModelInfo struct {
	Name       string      `json:"name"`
	IsFavorite bool        `json:"isFavorite"`
	IsActive   bool        `json:"isActive"`
	Status     ModelStatus `json:"status"`
}

// Models wraps the model list so new sub-fields merge field-wise.
type Models struct {
	List []ModelInfo `json:"list"`
}

// Settings is the full configuration blob.
type Settings struct {
	SchemaVersion int    `json:"schemaVersion"`
	Theme         string `json:"theme"`
	LogLevel      string `json:"logLevel"`

	ContextWindowSize int  `json:"contextWindowSize"`
	UnlimitedContext  bool `json:"unlimitedContext"`

	APIKeys []APIKey       `json:"apiKeys"`
	Models  Models         `json:"models"`
	Folders []model.Folder `json:"folders"`

	DefaultModel    string  `json:"defaultModel"`
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`

	EnableGoogleSearchGrounding bool `json:"enableGoogleSearchGrounding"`
	EnableURLContext            bool `json:"enableUrlContext"`

	EnableThinking        bool `json:"enableThinking"`
	EnableDynamicThinking bool `json:"enableDynamicThinking"`
	ThinkingBudget        int  `json:"thinkingBudget"`
	DisableThinking       bool `json:"disableThinking"`
}

// Defaults returns the declared default for every field.
func Defaults() Settings {
	return Settings{
		SchemaVersion:     SchemaVersion,
		Theme:             "system",
		LogLevel:          "info",
		ContextWindowSize: 10,
		APIKeys:           []APIKey{},
		Models:            Models{List: []ModelInfo{}},
		Folders:           []model.Folder{},
		Temperature:       1.0,
		TopP:              0.95,
		MaxOutputTokens:   8192,
	}
}

// Merge overlays the stored blob onto defaults. Fields present in stored
// win; nested objects merge field by field; lists are replaced whole.
// An empty blob yields defaults.
func Merge(defaults Settings, stored []byte) (Settings, error) {
	s := defaults.clone()
	if len(stored) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(stored, &s); err != nil {
		return defaults.clone(), &ConfigParseError{Err: err}
	}
	if s.APIKeys == nil {
		s.APIKeys = []APIKey{}
	}
	if s.Models.List == nil {
		s.Models.List = []ModelInfo{}
	}
	if s.Folders == nil {
		s.Folders = []model.Folder{}
	}
	s.APIKeys = normalizeKeys(s.APIKeys)
	s.SchemaVersion = SchemaVersion
	return s, nil
}

// clone returns a copy that shares no slices with s.
func (s Settings) clone() Settings {
	c := s
	c.APIKeys = append([]APIKey{}, s.APIKeys...)
	c.Models.List = append([]ModelInfo{}, s.Models.List...)
	c.Folders = append([]model.Folder{}, s.Folders...)
	return c
}

// normalizeKeys enforces exactly one default when keys exist: with none
// the first is promoted, with several only the first is kept.
func normalizeKeys(keys []APIKey) []APIKey {
	seen := false
	for i := range keys {
		if keys[i].IsDefault {
			if seen {
				keys[i].IsDefault = false
			}
			seen = true
		}
	}
	if !seen && len(keys) > 0 {
		keys[0].IsDefault = true
	}
	return keys
}

// DefaultAPIKey returns the default key, falling back to the first.
func (s Settings) DefaultAPIKey() (APIKey, bool) {
	for _, k := range s.APIKeys {
		if k.IsDefault {
			return k, true
		}
	}
	if len(s.APIKeys) > 0 {
		return s.APIKeys[0], true
	}
	return APIKey{}, false
}

// Folder returns the folder with the given id.
func (s Settings) Folder(id string) (model.Folder, bool) {
	for _, f := range s.Folders {
		if f.ID == id {
			return f, true
		}
	}
	return model.Folder{}, false
}

// ActiveModels returns active models, favorites first, otherwise in list order.
func (s Settings) ActiveModels() []ModelInfo {
	var fav, rest []ModelInfo
	for _, m := range s.Models.List {
		if !m.IsActive {
			continue
		}
		if m.IsFavorite {
			fav = append(fav, m)
		} else {
			rest = append(rest, m)
		}
	}
	return append(fav, rest...)
}
