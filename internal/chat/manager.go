// Package chat manages the chat lifecycle: creation, switching, list
// presentation, folders, prompts and message edits.
package chat

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/rcliao/gchat/internal/model"
	"github.com/rcliao/gchat/internal/settings"
	"github.com/rcliao/gchat/internal/store"
)

// LastActiveKey is the KV key holding the last active chat id.
const LastActiveKey = "lastActiveChatId"

const maxAutoTitle = 40

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrPromptNotFound  = errors.New("system prompt not found")
	ErrEmptyTitle      = errors.New("title is empty")

	// ErrFolderNotFound is shared with the settings layer, which owns folders.
	ErrFolderNotFound = settings.ErrFolderNotFound
)

// Manager runs chat operations against the record store.
type Manager struct {
	store    *store.Store
	settings *settings.Manager
	state    *State
	logger   *slog.Logger
}

// NewManager returns a Manager. A nil logger discards output.
func NewManager(st *store.Store, set *settings.Manager, state *State, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{store: st, settings: set, state: state, logger: logger}
}

// State returns the shared conversation state.
func (m *Manager) State() *State { return m.state }

// ActiveID returns the active chat id, or "".
func (m *Manager) ActiveID() string { return m.state.ActiveID() }

// CreateChat persists a new empty chat and makes it active.
func (m *Manager) CreateChat(ctx context.Context) (model.Chat, error) {
	c := model.Chat{
		ID:        model.NewID(),
		Title:     model.DefaultChatTitle,
		CreatedAt: model.NowMillis(),
	}
	if err := m.store.Chats.Add(ctx, c); err != nil {
		return model.Chat{}, fmt.Errorf("create chat: %w", err)
	}
	if err := m.SwitchChat(ctx, c.ID); err != nil {
		return c, err
	}
	m.logger.Info("chat created", "chat", c.ID)
	return c, nil
}

// SwitchChat makes id the active chat and remembers it across sessions.
// An empty id selects no chat.
func (m *Manager) SwitchChat(ctx context.Context, id string) error {
	if id == "" {
		m.state.setActive("")
		if err := m.store.DeleteValue(ctx, LastActiveKey); err != nil {
			return fmt.Errorf("switch chat: %w", err)
		}
		return nil
	}
	if _, err := m.Chat(ctx, id); err != nil {
		return err
	}
	m.state.setActive(id)
	if err := m.store.SetValue(ctx, LastActiveKey, id); err != nil {
		return fmt.Errorf("switch chat: %w", err)
	}
	m.logger.Debug("switched chat", "chat", id)
	return nil
}

// Restore activates a chat at startup: the remembered one if it still
// exists, else the most recent, else a newly created chat.
func (m *Manager) Restore(ctx context.Context) (model.Chat, error) {
	last, ok, err := m.store.GetValue(ctx, LastActiveKey)
	if err != nil {
		return model.Chat{}, fmt.Errorf("restore: %w", err)
	}
	if ok && last != "" {
		c, found, err := m.store.Chats.Get(ctx, last)
		if err != nil {
			return model.Chat{}, fmt.Errorf("restore: %w", err)
		}
		if found {
			m.state.setActive(c.ID)
			return c, nil
		}
	}

	recent, found, err := m.mostRecent(ctx)
	if err != nil {
		return model.Chat{}, err
	}
	if found {
		return recent, m.SwitchChat(ctx, recent.ID)
	}
	return m.CreateChat(ctx)
}

// Chat returns the chat with the given id.
func (m *Manager) Chat(ctx context.Context, id string) (model.Chat, error) {
	c, ok, err := m.store.Chats.Get(ctx, id)
	if err != nil {
		return model.Chat{}, fmt.Errorf("get chat: %w", err)
	}
	if !ok {
		return model.Chat{}, fmt.Errorf("chat %s: %w", id, ErrChatNotFound)
	}
	return c, nil
}

func (m *Manager) allChats(ctx context.Context) ([]model.Chat, error) {
	chats, err := m.store.Chats.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	sortRecentFirst(chats)
	return chats, nil
}

func (m *Manager) mostRecent(ctx context.Context) (model.Chat, bool, error) {
	chats, err := m.allChats(ctx)
	if err != nil || len(chats) == 0 {
		return model.Chat{}, false, err
	}
	return chats[0], true, nil
}

// sortRecentFirst orders by createdAt descending, ties by id descending.
func sortRecentFirst(chats []model.Chat) {
	slices.SortFunc(chats, func(a, b model.Chat) int {
		if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

// modify reads a chat, applies fn and writes it back.
func (m *Manager) modify(ctx context.Context, id string, fn func(*model.Chat) error) (model.Chat, error) {
	c, err := m.Chat(ctx, id)
	if err != nil {
		return model.Chat{}, err
	}
	if err := fn(&c); err != nil {
		return model.Chat{}, err
	}
	if err := m.store.Chats.Put(ctx, c); err != nil {
		return model.Chat{}, fmt.Errorf("update chat: %w", err)
	}
	return c, nil
}

// RenameChat sets a chat's title.
func (m *Manager) RenameChat(ctx context.Context, id, title string) (model.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Chat{}, ErrEmptyTitle
	}
	return m.modify(ctx, id, func(c *model.Chat) error {
		c.Title = title
		return nil
	})
}

// SetPinned pins or unpins a chat.
func (m *Manager) SetPinned(ctx context.Context, id string, pinned bool) (model.Chat, error) {
	return m.modify(ctx, id, func(c *model.Chat) error {
		c.IsPinned = pinned
		return nil
	})
}

// SetArchived archives or unarchives a chat.
func (m *Manager) SetArchived(ctx context.Context, id string, archived bool) (model.Chat, error) {
	return m.modify(ctx, id, func(c *model.Chat) error {
		c.IsArchived = archived
		return nil
	})
}

// MoveToFolder files a chat under folderID; "" removes it from any folder.
func (m *Manager) MoveToFolder(ctx context.Context, id, folderID string) (model.Chat, error) {
	if folderID != "" {
		if _, ok := m.settings.Get().Folder(folderID); !ok {
			return model.Chat{}, fmt.Errorf("folder %s: %w", folderID, ErrFolderNotFound)
		}
	}
	return m.modify(ctx, id, func(c *model.Chat) error {
		c.FolderID = folderID
		return nil
	})
}

// AutoTitle names a chat after its first prompt while it still has the
// default title.
func (m *Manager) AutoTitle(ctx context.Context, id, prompt string) error {
	c, err := m.Chat(ctx, id)
	if err != nil || c.Title != model.DefaultChatTitle {
		return err
	}
	title := titleFrom(prompt)
	if title == "" {
		return nil
	}
	c.Title = title
	if err := m.store.Chats.Put(ctx, c); err != nil {
		return fmt.Errorf("title chat: %w", err)
	}
	return nil
}

func titleFrom(prompt string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(prompt), "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= maxAutoTitle {
		return line
	}
	r := []rune(line)
	return strings.TrimSpace(string(r[:maxAutoTitle])) + "..."
}

// DeleteChat removes a chat and then its messages. If it was active, the
// most recent remaining chat becomes active, or none.
func (m *Manager) DeleteChat(ctx context.Context, id string) error {
	if err := m.store.Chats.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	msgs, err := m.store.Messages.ForChat(ctx, id)
	if err != nil {
		return fmt.Errorf("delete chat messages: %w", err)
	}
	for _, msg := range msgs {
		if err := m.store.Messages.Delete(ctx, msg.Base().ID); err != nil {
			return fmt.Errorf("delete chat messages: %w", err)
		}
	}
	m.logger.Info("chat deleted", "chat", id, "messages", len(msgs))

	if m.state.ActiveID() != id {
		return nil
	}
	next, _, err := m.mostRecent(ctx)
	if err != nil {
		return err
	}
	return m.SwitchChat(ctx, next.ID)
}

// DeleteAllChats removes every chat and message and clears the selection.
func (m *Manager) DeleteAllChats(ctx context.Context) error {
	if err := m.store.Messages.Clear(ctx); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}
	if err := m.store.Chats.Clear(ctx); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}
	m.logger.Info("all chats deleted")
	return m.SwitchChat(ctx, "")
}

// DeleteFolder removes a folder and moves its chats out of it.
func (m *Manager) DeleteFolder(ctx context.Context, folderID string) error {
	if err := m.settings.DeleteFolder(ctx, folderID); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	chats, err := m.store.Chats.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	for _, c := range chats {
		if c.FolderID != folderID {
			continue
		}
		c.FolderID = ""
		if err := m.store.Chats.Put(ctx, c); err != nil {
			return fmt.Errorf("delete folder: %w", err)
		}
	}
	return nil
}
