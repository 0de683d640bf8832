// Package model defines the core chat data types.
package model

import "time"

// DefaultChatTitle is the title given to freshly created chats.
const DefaultChatTitle = "New Chat"

// Chat is a titled conversation thread.
type Chat struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	CreatedAt  int64  `json:"createdAt"`
	FolderID   string `json:"folderId,omitempty"`
	IsPinned   bool   `json:"isPinned"`
	IsArchived bool   `json:"isArchived"`
}

// Created returns CreatedAt as a time.
func (c Chat) Created() time.Time {
	return time.UnixMilli(c.CreatedAt)
}

// SystemPrompt is a reusable system instruction. Requests copy its text,
// so later edits do not alter past messages.
type SystemPrompt struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Folder groups chats in the sidebar. Chats hold a weak reference to it.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
