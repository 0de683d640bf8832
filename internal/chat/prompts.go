package chat

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rcliao/gchat/internal/model"
)

// Prompts returns the saved system prompts ordered by title.
func (m *Manager) Prompts(ctx context.Context) ([]model.SystemPrompt, error) {
	ps, err := m.store.Prompts.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	slices.SortFunc(ps, func(a, b model.SystemPrompt) int {
		return cmp.Or(cmp.Compare(a.Title, b.Title), cmp.Compare(a.ID, b.ID))
	})
	return ps, nil
}

// Prompt returns one saved system prompt.
func (m *Manager) Prompt(ctx context.Context, id string) (model.SystemPrompt, error) {
	p, ok, err := m.store.Prompts.Get(ctx, id)
	if err != nil {
		return model.SystemPrompt{}, fmt.Errorf("get prompt: %w", err)
	}
	if !ok {
		return model.SystemPrompt{}, fmt.Errorf("prompt %s: %w", id, ErrPromptNotFound)
	}
	return p, nil
}

// AddPrompt saves a new system prompt.
func (m *Manager) AddPrompt(ctx context.Context, title, text string) (model.SystemPrompt, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.SystemPrompt{}, ErrEmptyTitle
	}
	p := model.SystemPrompt{ID: model.NewID(), Title: title, Text: text}
	if err := m.store.Prompts.Add(ctx, p); err != nil {
		return model.SystemPrompt{}, fmt.Errorf("add prompt: %w", err)
	}
	return p, nil
}

// UpdatePrompt replaces an existing prompt's title and text.
func (m *Manager) UpdatePrompt(ctx context.Context, p model.SystemPrompt) error {
	if _, err := m.Prompt(ctx, p.ID); err != nil {
		return err
	}
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	if err := m.store.Prompts.Put(ctx, p); err != nil {
		return fmt.Errorf("update prompt: %w", err)
	}
	return nil
}

// DeletePrompt removes a saved prompt.
func (m *Manager) DeletePrompt(ctx context.Context, id string) error {
	if err := m.store.Prompts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	return nil
}
