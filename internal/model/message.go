package model

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// Message is one turn in a chat. It is either a *UserMessage or a
// *ModelMessage; only model turns carry usage and thinking data.
type Message interface {
	Base() *MessageBase
	Role() Role
}

// MessageBase holds the fields shared by every message.
type MessageBase struct {
	ID        string `json:"id"`
	ChatID    string `json:"chatId"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	IsEdited  bool   `json:"isEdited"`
}

// UserMessage is a turn written by the user.
type UserMessage struct {
	MessageBase
}

func (m *UserMessage) Base() *MessageBase { return &m.MessageBase }
func (m *UserMessage) Role() Role         { return RoleUser }

// ModelMessage is a turn produced by the model.
type ModelMessage struct {
	MessageBase
	ModelUsed       string      `json:"modelUsed,omitempty"`
	Usage           *UsageStats `json:"usage,omitempty"`
	ThinkingContent string      `json:"thinkingContent,omitempty"`
	ThinkingSteps   []ToolCall  `json:"thinkingSteps,omitempty"`
	// Error is set when the generation failed; Content then holds a marker.
	Error string `json:"error,omitempty"`
}

func (m *ModelMessage) Base() *MessageBase { return &m.MessageBase }
func (m *ModelMessage) Role() Role         { return RoleModel }

// Failed reports whether the message records a failed generation.
func (m *ModelMessage) Failed() bool { return m.Error != "" }

// ToolCall is a function call emitted by the model while thinking.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// UsageStats are derived generation statistics for a model message.
type UsageStats struct {
	ResponseTimeMs       int64   `json:"responseTime"`
	PromptTokenCount     int     `json:"promptTokenCount"`
	CompletionTokenCount int     `json:"completionTokenCount"`
	ThoughtsTokenCount   int     `json:"thoughtsTokenCount"`
	OtherTokenCount      int     `json:"otherTokenCount"`
	TotalTokenCount      int     `json:"totalTokenCount"`
	TokensPerSecond      float64 `json:"tokensPerSecond"`
}

// messageRecord is the flat, role-tagged storage shape of a Message.
type messageRecord struct {
	ID              string      `json:"id"`
	ChatID          string      `json:"chatId"`
	Role            Role        `json:"role"`
	Content         string      `json:"content"`
	Timestamp       int64       `json:"timestamp"`
	IsEdited        bool        `json:"isEdited"`
	ModelUsed       string      `json:"modelUsed,omitempty"`
	Usage           *UsageStats `json:"usage,omitempty"`
	ThinkingContent string      `json:"thinkingContent,omitempty"`
	ThinkingSteps   []ToolCall  `json:"thinkingSteps,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// EncodeMessage serializes m into its tagged storage form.
func EncodeMessage(m Message) ([]byte, error) {
	b := m.Base()
	rec := messageRecord{
		ID:        b.ID,
		ChatID:    b.ChatID,
		Role:      m.Role(),
		Content:   b.Content,
		Timestamp: b.Timestamp,
		IsEdited:  b.IsEdited,
	}
	switch v := m.(type) {
	case *UserMessage:
	case *ModelMessage:
		rec.ModelUsed = v.ModelUsed
		rec.Usage = v.Usage
		rec.ThinkingContent = v.ThinkingContent
		rec.ThinkingSteps = v.ThinkingSteps
		rec.Error = v.Error
	default:
		return nil, fmt.Errorf("encode message: unsupported type %T", m)
	}
	return json.Marshal(rec)
}

// DecodeMessage parses the tagged storage form back into a Message.
func DecodeMessage(data []byte) (Message, error) {
	var rec messageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	base := MessageBase{
		ID:        rec.ID,
		ChatID:    rec.ChatID,
		Content:   rec.Content,
		Timestamp: rec.Timestamp,
		IsEdited:  rec.IsEdited,
	}
	switch rec.Role {
	case RoleUser:
		return &UserMessage{MessageBase: base}, nil
	case RoleModel:
		return &ModelMessage{
			MessageBase:     base,
			ModelUsed:       rec.ModelUsed,
			Usage:           rec.Usage,
			ThinkingContent: rec.ThinkingContent,
			ThinkingSteps:   rec.ThinkingSteps,
			Error:           rec.Error,
		}, nil
	default:
		return nil, fmt.Errorf("decode message %s: unknown role %q", rec.ID, rec.Role)
	}
}
