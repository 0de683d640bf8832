package model

import (
	"strings"
	"testing"
)

func TestEncodeDecodeKeepsVariant(t *testing.T) {
	model := &ModelMessage{
		MessageBase:     MessageBase{ID: "m1", ChatID: "c1", Content: "hi", Timestamp: 42},
		ModelUsed:       "gemini-2.5-flash",
		Usage:           &UsageStats{TotalTokenCount: 7},
		ThinkingContent: "hmm",
		ThinkingSteps:   []ToolCall{{Name: "lookup", Args: map[string]any{"q": "x"}}},
	}
	data, err := EncodeMessage(model)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	mm, ok := got.(*ModelMessage)
	if !ok {
		t.Fatalf("expected *ModelMessage, got %T", got)
	}
	if mm.Usage == nil || mm.Usage.TotalTokenCount != 7 {
		t.Errorf("usage not preserved: %+v", mm.Usage)
	}
	if len(mm.ThinkingSteps) != 1 || mm.ThinkingSteps[0].Name != "lookup" {
		t.Errorf("thinking steps not preserved: %+v", mm.ThinkingSteps)
	}

	user := &UserMessage{MessageBase: MessageBase{ID: "u1", ChatID: "c1", Content: "hello", Timestamp: 41}}
	data, _ = EncodeMessage(user)
	if strings.Contains(string(data), "usage") {
		t.Errorf("user record should not carry usage: %s", data)
	}
	got, err = DecodeMessage(data)
	if err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if got.Role() != RoleUser || got.Base().Content != "hello" {
		t.Errorf("unexpected user message: %+v", got)
	}
}

func TestDecodeUnknownRole(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"id":"x","role":"system","content":"?"}`))
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
}
