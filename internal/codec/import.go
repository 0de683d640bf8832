package codec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/rcliao/gchat/internal/model"
	"github.com/rcliao/gchat/internal/store"
)

// ValidationError describes a malformed import document or entry.
type ValidationError struct {
	Index  int // entry position, -1 for the whole document
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return "invalid document: " + e.Reason
	}
	return fmt.Sprintf("invalid entry %d: %s", e.Index, e.Reason)
}

// ImportReport counts the outcome of a chat import.
type ImportReport struct {
	Imported        int `json:"imported"`
	Skipped         int `json:"skipped"`
	SkippedMessages int `json:"skipped_messages"`
	Renamed         int `json:"renamed"`
}

func validateChat(i int, e gjson.Result) error {
	if !e.IsObject() {
		return &ValidationError{Index: i, Reason: "not an object"}
	}
	if e.Get("title").Type != gjson.String {
		return &ValidationError{Index: i, Reason: "title must be a string"}
	}
	if !e.Get("messages").IsArray() {
		return &ValidationError{Index: i, Reason: "messages must be an array"}
	}
	if !present(e.Get("id")) {
		return &ValidationError{Index: i, Reason: "missing id"}
	}
	return nil
}

// present reports whether v holds a usable id.
func present(v gjson.Result) bool {
	switch v.Type {
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	}
	return false
}

// ImportChats adds the chats in data, an array as produced by ExportAll.
// Invalid entries are skipped and counted; only a document that is not
// an array fails the whole import. A chat whose id is taken gets a fresh
// id, as does a message whose id belongs to a different chat. A nil
// logger discards output.
func ImportChats(ctx context.Context, st *store.Store, data []byte, logger *slog.Logger) (ImportReport, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var rep ImportReport
	if !gjson.ValidBytes(data) {
		return rep, &ValidationError{Index: -1, Reason: "not valid JSON"}
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return rep, &ValidationError{Index: -1, Reason: "expected an array of chats"}
	}

	for i, entry := range doc.Array() {
		if err := validateChat(i, entry); err != nil {
			logger.Warn("skipping chat", "err", err)
			rep.Skipped++
			continue
		}
		renamed, skippedMsgs, err := importChat(ctx, st, entry, logger)
		if err != nil {
			return rep, err
		}
		rep.Imported++
		rep.SkippedMessages += skippedMsgs
		if renamed {
			rep.Renamed++
		}
	}
	logger.Info("chats imported", "imported", rep.Imported, "skipped", rep.Skipped)
	return rep, nil
}

func importChat(ctx context.Context, st *store.Store, e gjson.Result, logger *slog.Logger) (renamed bool, skipped int, err error) {
	id := e.Get("id").String()
	_, exists, err := st.Chats.Get(ctx, id)
	if err != nil {
		return false, 0, fmt.Errorf("import chat %s: %w", id, err)
	}
	if exists {
		newID := model.NewID()
		logger.Info("chat id taken, importing under new id", "old", id, "new", newID)
		id, renamed = newID, true
	}

	c := model.Chat{
		ID:         id,
		Title:      e.Get("title").Str,
		CreatedAt:  e.Get("createdAt").Int(),
		FolderID:   e.Get("folderId").String(),
		IsPinned:   e.Get("isPinned").Bool(),
		IsArchived: e.Get("isArchived").Bool(),
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = model.NowMillis()
	}
	if err := st.Chats.Add(ctx, c); err != nil {
		return renamed, 0, fmt.Errorf("import chat %s: %w", id, err)
	}

	for j, me := range e.Get("messages").Array() {
		msg, verr := messageFrom(j, me, id)
		if verr != nil {
			logger.Warn("skipping message", "chat", c.Title, "err", verr)
			skipped++
			continue
		}
		b := msg.Base()
		prev, found, err := st.Messages.Get(ctx, b.ID)
		if err != nil {
			return renamed, skipped, fmt.Errorf("import message %s: %w", b.ID, err)
		}
		if found && prev.Base().ChatID != id {
			b.ID = model.NewID()
		}
		if err := st.Messages.Put(ctx, msg); err != nil {
			return renamed, skipped, fmt.Errorf("import message %s: %w", b.ID, err)
		}
	}
	return renamed, skipped, nil
}

func messageFrom(i int, e gjson.Result, chatID string) (model.Message, error) {
	if !e.IsObject() || !present(e.Get("id")) {
		return nil, &ValidationError{Index: i, Reason: "message missing id"}
	}
	if e.Get("content").Type != gjson.String {
		return nil, &ValidationError{Index: i, Reason: "message content must be a string"}
	}
	role := model.Role(e.Get("role").String())
	if !role.Valid() {
		return nil, &ValidationError{Index: i, Reason: fmt.Sprintf("unknown role %q", role)}
	}

	base := model.MessageBase{
		ID:        e.Get("id").String(),
		ChatID:    chatID,
		Content:   e.Get("content").Str,
		Timestamp: e.Get("timestamp").Int(),
		IsEdited:  e.Get("isEdited").Bool(),
	}
	if base.Timestamp == 0 {
		base.Timestamp = model.NowMillis()
	}
	if role == model.RoleUser {
		return &model.UserMessage{MessageBase: base}, nil
	}
	return &model.ModelMessage{
		MessageBase: base,
		ModelUsed:   e.Get("modelUsed").String(),
		Error:       e.Get("error").String(),
	}, nil
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
