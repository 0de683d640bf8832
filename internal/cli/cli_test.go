package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rcliao/gchat/internal/chat"
	"github.com/rcliao/gchat/internal/codec"
	"github.com/rcliao/gchat/internal/model"
	"github.com/rcliao/gchat/internal/store"
	"github.com/rcliao/gchat/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gchat runs the root command against the database in dir.
func gchat(t *testing.T, dir string, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs(append([]string{
		"--db", filepath.Join(dir, "gchat.db"),
		"--backend", store.BackendSQLite,
		"--config", filepath.Join(dir, "missing.toml"),
		"--format", "json",
	}, args...))
	require.NoError(t, RootCmd.Execute())
	return out.Bytes()
}

func TestChatLifecycleThroughCommands(t *testing.T) {
	dir := t.TempDir()

	var c model.Chat
	require.NoError(t, json.Unmarshal(gchat(t, dir, "new"), &c))
	assert.Equal(t, model.DefaultChatTitle, c.Title)

	var f model.Folder
	require.NoError(t, json.Unmarshal(gchat(t, dir, "folders", "add", "Work"), &f))
	gchat(t, dir, "move", c.ID, f.ID)
	gchat(t, dir, "rename", c.ID, "Trip", "plans")

	var list chat.ChatList
	require.NoError(t, json.Unmarshal(gchat(t, dir, "chats"), &list))
	require.Len(t, list.Folders, 1)
	require.Len(t, list.Folders[0].Chats, 1)
	assert.Equal(t, c.ID, list.Folders[0].Chats[0].ID)
	assert.Equal(t, "Trip plans", list.Folders[0].Chats[0].Title)

	var docs []codec.ChatDoc
	require.NoError(t, json.Unmarshal(gchat(t, dir, "export"), &docs))
	require.Len(t, docs, 1)
	require.NotNil(t, docs[0].FolderID)
	assert.Equal(t, f.ID, *docs[0].FolderID)

	gchat(t, dir, "rm", c.ID)

	var stats store.Stats
	require.NoError(t, json.Unmarshal(gchat(t, dir, "stats"), &stats))
	assert.Equal(t, 0, stats.Chats)
	assert.Equal(t, store.SchemaVersion, stats.SchemaVersion)
}

func TestKeysAreMaskedInOutput(t *testing.T) {
	dir := t.TempDir()

	out := gchat(t, dir, "keys", "add", "personal", "AIzaSecretValue1234")
	assert.NotContains(t, string(out), "AIzaSecretValue")
	assert.Contains(t, string(out), "1234")

	out = gchat(t, dir, "settings", "show")
	assert.NotContains(t, string(out), "AIzaSecretValue")
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", maskKey(""))
	assert.Equal(t, "***", maskKey("abc"))
	assert.Equal(t, "********6789", maskKey("0123456789"))
}

func TestStreamPrinterWritesDeltas(t *testing.T) {
	var out bytes.Buffer
	p := &streamPrinter{w: &out}

	d := stream.NewDraft("m1", "c1", "gemini-x", 1)
	for _, s := range []string{"Hi", " there"} {
		d = stream.ApplyChunk(d, stream.Chunk{Text: s})
		p.ChunkApplied(d)
	}
	p.Committed(&model.ModelMessage{ModelUsed: "gemini-x"})

	assert.Equal(t, "Hi there\n", out.String())
}

func TestStreamPrinterPrintsMarkerWhenNothingStreamed(t *testing.T) {
	var out bytes.Buffer
	p := &streamPrinter{w: &out}

	p.Committed(&model.ModelMessage{
		MessageBase: model.MessageBase{Content: "[Blocked] Reason: SAFETY"},
		ModelUsed:   "gemini-x",
		Usage:       &model.UsageStats{TotalTokenCount: 12, TokensPerSecond: 3.5},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[Blocked] Reason: SAFETY", lines[0])
	assert.Equal(t, "[gemini-x] 12 tokens, 3.50 tok/s", lines[1])
}

func TestPrintChatListMarksActive(t *testing.T) {
	var out bytes.Buffer
	printChatList(&out, chat.ChatList{
		Pinned:        []model.Chat{{ID: "a", Title: "Pinned one"}},
		Uncategorized: []model.Chat{{ID: "b", Title: "Loose"}},
	}, "b")

	assert.Equal(t, "Pinned\n   a  Pinned one\nChats\n * b  Loose\n", out.String())
}
