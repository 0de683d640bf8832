// Package codec converts chats and settings to and from portable JSON
// documents and renders chats as Markdown.
package codec

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rcliao/gchat/internal/chat"
	"github.com/rcliao/gchat/internal/model"
	"github.com/rcliao/gchat/internal/store"
)

// ChatDoc is the exported form of a chat with its messages.
type ChatDoc struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	CreatedAt  int64        `json:"createdAt"`
	FolderID   *string      `json:"folderId"`
	IsPinned   bool         `json:"isPinned"`
	IsArchived bool         `json:"isArchived"`
	Messages   []MessageDoc `json:"messages"`
}

// MessageDoc is the exported form of a message. Usage is not exported.
type MessageDoc struct {
	ID        string     `json:"id"`
	Role      model.Role `json:"role"`
	Content   string     `json:"content"`
	Timestamp int64      `json:"timestamp"`
	ModelUsed string     `json:"modelUsed,omitempty"`
	IsEdited  bool       `json:"isEdited"`
	// Error marks a failed generation so it stays out of request history.
	Error string `json:"error,omitempty"`
}

func chatDoc(c model.Chat, msgs []model.Message) ChatDoc {
	doc := ChatDoc{
		ID:         c.ID,
		Title:      c.Title,
		CreatedAt:  c.CreatedAt,
		IsPinned:   c.IsPinned,
		IsArchived: c.IsArchived,
		Messages:   make([]MessageDoc, 0, len(msgs)),
	}
	if c.FolderID != "" {
		f := c.FolderID
		doc.FolderID = &f
	}
	for _, m := range msgs {
		b := m.Base()
		md := MessageDoc{
			ID:        b.ID,
			Role:      m.Role(),
			Content:   b.Content,
			Timestamp: b.Timestamp,
			IsEdited:  b.IsEdited,
		}
		if mm, ok := m.(*model.ModelMessage); ok {
			md.ModelUsed = mm.ModelUsed
			md.Error = mm.Error
		}
		doc.Messages = append(doc.Messages, md)
	}
	return doc
}

// ExportAll returns every chat with its messages, oldest chat first.
func ExportAll(ctx context.Context, st *store.Store) ([]ChatDoc, error) {
	chats, err := st.Chats.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export chats: %w", err)
	}
	slices.SortFunc(chats, func(a, b model.Chat) int {
		return cmp.Or(cmp.Compare(a.CreatedAt, b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	docs := make([]ChatDoc, 0, len(chats))
	for _, c := range chats {
		msgs, err := st.Messages.ForChat(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("export chat %s: %w", c.ID, err)
		}
		docs = append(docs, chatDoc(c, msgs))
	}
	return docs, nil
}

// ExportChat returns a single chat as a one-element list, the same shape
// ExportAll produces.
func ExportChat(ctx context.Context, st *store.Store, chatID string) ([]ChatDoc, error) {
	c, ok, err := st.Chats.Get(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("export chat: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("export chat %s: %w", chatID, chat.ErrChatNotFound)
	}
	msgs, err := st.Messages.ForChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("export chat %s: %w", chatID, err)
	}
	return []ChatDoc{chatDoc(c, msgs)}, nil
}

// FormatMarkdown renders messages as a plain transcript.
func FormatMarkdown(msgs []model.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		author := "User"
		if mm, ok := m.(*model.ModelMessage); ok {
			author = fmt.Sprintf("AI (%s)", cmp.Or(mm.ModelUsed, "gemini"))
		}
		fmt.Fprintf(&b, "**%s**\n\n%s\n\n---\n\n", author, m.Base().Content)
	}
	return b.String()
}
