package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/gchat/internal/model"
)

// Messages returns a chat's messages in timestamp order.
func (m *Manager) Messages(ctx context.Context, chatID string) ([]model.Message, error) {
	msgs, err := m.store.Messages.ForChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

func (m *Manager) message(ctx context.Context, id string) (model.Message, error) {
	msg, ok, err := m.store.Messages.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("message %s: %w", id, ErrMessageNotFound)
	}
	return msg, nil
}

// EditMessage replaces a message's content and marks it edited. The
// timestamp is kept so the message keeps its place. Blank or unchanged
// content leaves the message as it was.
func (m *Manager) EditMessage(ctx context.Context, id, content string) (model.Message, error) {
	msg, err := m.message(ctx, id)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	b := msg.Base()
	if content == "" || content == b.Content {
		return msg, nil
	}
	b.Content = content
	b.IsEdited = true
	if err := m.store.Messages.Put(ctx, msg); err != nil {
		return nil, fmt.Errorf("edit message: %w", err)
	}
	return msg, nil
}

// DeleteMessage removes one message.
func (m *Manager) DeleteMessage(ctx context.Context, id string) error {
	if _, err := m.message(ctx, id); err != nil {
		return err
	}
	if err := m.store.Messages.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
