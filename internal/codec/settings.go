package codec

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/rcliao/gchat/internal/model"
	"github.com/rcliao/gchat/internal/settings"
	"github.com/rcliao/gchat/internal/store"
)

// SettingsBundle is the exported settings blob plus system prompts.
type SettingsBundle struct {
	Settings      json.RawMessage      `json:"settings"`
	SystemPrompts []model.SystemPrompt `json:"systemPrompts"`
}

// Key names written by the browser client; accepted on import.
const (
	legacySettingsKey = "localStorageSettings"
	legacyPromptsKey  = "indexedDbSystemPrompts"
)

// ExportSettings bundles the current settings and all system prompts.
func ExportSettings(ctx context.Context, set *settings.Manager, st *store.Store) (*SettingsBundle, error) {
	raw, err := json.Marshal(set.Get())
	if err != nil {
		return nil, fmt.Errorf("export settings: %w", err)
	}
	prompts, err := st.Prompts.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export prompts: %w", err)
	}
	return &SettingsBundle{Settings: raw, SystemPrompts: prompts}, nil
}

func firstOf(doc gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := doc.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// ImportSettings overwrites the settings blob and replaces every system
// prompt with those in data. Chats are not touched. It returns the
// number of prompts imported.
func ImportSettings(ctx context.Context, set *settings.Manager, st *store.Store, data []byte) (int, error) {
	if !gjson.ValidBytes(data) {
		return 0, &ValidationError{Index: -1, Reason: "not valid JSON"}
	}
	doc := gjson.ParseBytes(data)
	blob := firstOf(doc, "settings", legacySettingsKey)
	prompts := firstOf(doc, "systemPrompts", legacyPromptsKey)
	if !blob.IsObject() {
		return 0, &ValidationError{Index: -1, Reason: "settings must be an object"}
	}
	if !prompts.IsArray() {
		return 0, &ValidationError{Index: -1, Reason: "systemPrompts must be an array"}
	}

	var parsed []model.SystemPrompt
	seen := map[string]bool{}
	for i, p := range prompts.Array() {
		var sp model.SystemPrompt
		if err := json.Unmarshal([]byte(p.Raw), &sp); err != nil {
			return 0, &ValidationError{Index: i, Reason: err.Error()}
		}
		if sp.ID == "" {
			sp.ID = model.NewID()
		}
		if seen[sp.ID] {
			return 0, &ValidationError{Index: i, Reason: fmt.Sprintf("duplicate prompt id %q", sp.ID)}
		}
		seen[sp.ID] = true
		parsed = append(parsed, sp)
	}

	if err := set.ReplaceRaw(ctx, []byte(blob.Raw)); err != nil {
		return 0, fmt.Errorf("import settings: %w", err)
	}
	if err := st.Prompts.Clear(ctx); err != nil {
		return 0, fmt.Errorf("import prompts: %w", err)
	}
	for _, sp := range parsed {
		if err := st.Prompts.Add(ctx, sp); err != nil {
			return 0, fmt.Errorf("import prompt %s: %w", sp.ID, err)
		}
	}
	return len(parsed), nil
}
