package store

import (
	"context"
	"errors"
	"testing"

	"github.com/rcliao/gchat/internal/model"
)

func testChat(id string, created int64) model.Chat {
	return model.Chat{ID: id, Title: "chat " + id, CreatedAt: created}
}

func userMsg(id, chatID string, ts int64, content string) *model.UserMessage {
	return &model.UserMessage{MessageBase: model.MessageBase{ID: id, ChatID: chatID, Timestamp: ts, Content: content}}
}

func modelMsg(id, chatID string, ts int64, content string) *model.ModelMessage {
	return &model.ModelMessage{
		MessageBase: model.MessageBase{ID: id, ChatID: chatID, Timestamp: ts, Content: content},
		ModelUsed:   "gemini-2.5-flash",
		Usage:       &model.UsageStats{TotalTokenCount: 3},
	}
}

// runConformance exercises the engine contract shared by every backend.
func runConformance(t *testing.T, open func(t *testing.T) *Store) {
	t.Run("AddDuplicate", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		if err := s.Chats.Add(ctx, testChat("c1", 1)); err != nil {
			t.Fatalf("add: %v", err)
		}
		err := s.Chats.Add(ctx, testChat("c1", 2))
		if !errors.Is(err, ErrDuplicateKey) {
			t.Fatalf("expected ErrDuplicateKey, got %v", err)
		}
		var se *StorageError
		if !errors.As(err, &se) || se.Collection != Chats || se.Op != "add" {
			t.Errorf("expected StorageError for chats.add, got %v", err)
		}
		got, _, _ := s.Chats.Get(ctx, "c1")
		if got.CreatedAt != 1 {
			t.Errorf("duplicate add must not overwrite, createdAt=%d", got.CreatedAt)
		}
	})

	t.Run("PutReplaces", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		s.Chats.Put(ctx, testChat("c1", 1))
		c := testChat("c1", 1)
		c.Title = "renamed"
		if err := s.Chats.Put(ctx, c); err != nil {
			t.Fatalf("put: %v", err)
		}
		got, ok, err := s.Chats.Get(ctx, "c1")
		if err != nil || !ok {
			t.Fatalf("get: ok=%v err=%v", ok, err)
		}
		if got.Title != "renamed" {
			t.Errorf("expected renamed, got %q", got.Title)
		}
		if n, _ := s.Chats.Count(ctx); n != 1 {
			t.Errorf("expected 1 chat, got %d", n)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		_, ok, err := s.Chats.Get(ctx, "nope")
		if err != nil {
			t.Fatalf("absence must not be an error: %v", err)
		}
		if ok {
			t.Error("expected not found")
		}
	})

	t.Run("IdempotentReads", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		s.Prompts.Add(ctx, model.SystemPrompt{ID: "p1", Title: "t", Text: "be brief"})
		a, _, _ := s.Prompts.Get(ctx, "p1")
		b, _, _ := s.Prompts.Get(ctx, "p1")
		if a != b {
			t.Errorf("reads differ: %+v vs %+v", a, b)
		}
	})

	t.Run("DeleteAndClearIdempotent", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		s.Chats.Add(ctx, testChat("c1", 1))
		s.Chats.Add(ctx, testChat("c2", 2))
		for i := 0; i < 2; i++ {
			if err := s.Chats.Delete(ctx, "c1"); err != nil {
				t.Fatalf("delete #%d: %v", i, err)
			}
		}
		if n, _ := s.Chats.Count(ctx); n != 1 {
			t.Errorf("expected 1 chat, got %d", n)
		}
		for i := 0; i < 2; i++ {
			if err := s.Chats.Clear(ctx); err != nil {
				t.Fatalf("clear #%d: %v", i, err)
			}
		}
		all, err := s.Chats.GetAll(ctx)
		if err != nil {
			t.Fatalf("get all: %v", err)
		}
		if len(all) != 0 {
			t.Errorf("expected empty, got %d", len(all))
		}
	})

	t.Run("ForChatOrdering", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		s.Messages.Put(ctx, modelMsg("m3", "c1", 30, "third"))
		s.Messages.Put(ctx, userMsg("m1", "c1", 10, "first"))
		s.Messages.Put(ctx, userMsg("m2b", "c1", 20, "second b"))
		s.Messages.Put(ctx, userMsg("m2a", "c1", 20, "second a"))
		s.Messages.Put(ctx, userMsg("x1", "c2", 5, "other chat"))

		msgs, err := s.Messages.ForChat(ctx, "c1")
		if err != nil {
			t.Fatalf("for chat: %v", err)
		}
		want := []string{"m1", "m2a", "m2b", "m3"}
		if len(msgs) != len(want) {
			t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
		}
		for i, m := range msgs {
			if m.Base().ID != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], m.Base().ID)
			}
		}
		if _, ok := msgs[3].(*model.ModelMessage); !ok {
			t.Errorf("expected model message variant, got %T", msgs[3])
		}
	})

	t.Run("PutMovesIndex", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		s.Messages.Put(ctx, userMsg("m1", "c1", 10, "hello"))
		s.Messages.Put(ctx, userMsg("m1", "c2", 99, "moved"))

		if msgs, _ := s.Messages.ForChat(ctx, "c1"); len(msgs) != 0 {
			t.Errorf("expected c1 empty after move, got %d", len(msgs))
		}
		msgs, _ := s.Messages.ForChat(ctx, "c2")
		if len(msgs) != 1 || msgs[0].Base().Content != "moved" {
			t.Errorf("expected moved message in c2, got %+v", msgs)
		}
	})

	t.Run("DeleteMessageDropsIndex", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		s.Messages.Put(ctx, userMsg("m1", "c1", 10, "a"))
		s.Messages.Put(ctx, userMsg("m2", "c1", 20, "b"))
		s.Messages.Delete(ctx, "m1")

		msgs, _ := s.Messages.ForChat(ctx, "c1")
		if len(msgs) != 1 || msgs[0].Base().ID != "m2" {
			t.Errorf("expected only m2, got %d messages", len(msgs))
		}
		s.Messages.Clear(ctx)
		if msgs, _ := s.Messages.ForChat(ctx, "c1"); len(msgs) != 0 {
			t.Errorf("expected no messages after clear, got %d", len(msgs))
		}
	})

	t.Run("Values", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		if _, ok, err := s.GetValue(ctx, "k"); ok || err != nil {
			t.Fatalf("expected unset, ok=%v err=%v", ok, err)
		}
		s.SetValue(ctx, "k", "v1")
		s.SetValue(ctx, "k", "v2")
		if v, _, _ := s.GetValue(ctx, "k"); v != "v2" {
			t.Errorf("expected v2, got %q", v)
		}
		s.DeleteValue(ctx, "k")
		s.DeleteValue(ctx, "k")
		if _, ok, _ := s.GetValue(ctx, "k"); ok {
			t.Error("expected value deleted")
		}
	})

	t.Run("StatsAndOrphans", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		s.Chats.Add(ctx, testChat("c1", 1))
		s.Messages.Put(ctx, userMsg("m1", "c1", 1, "kept"))
		s.Messages.Put(ctx, userMsg("m2", "gone", 1, "orphan"))

		st, err := s.Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if st.Chats != 1 || st.Messages != 2 || st.OrphanMessages != 1 {
			t.Errorf("unexpected stats: %+v", st)
		}

		n, err := s.PurgeOrphans(ctx)
		if err != nil || n != 1 {
			t.Fatalf("purge: n=%d err=%v", n, err)
		}
		if c, _ := s.Messages.Count(ctx); c != 1 {
			t.Errorf("expected 1 message left, got %d", c)
		}
	})
}
