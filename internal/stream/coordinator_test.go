package stream

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rcliao/gchat/internal/chat"
	"github.com/rcliao/gchat/internal/model"
	"github.com/rcliao/gchat/internal/settings"
	"github.com/rcliao/gchat/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedBackend replays fixed chunks, then an optional error.
type scriptedBackend struct {
	chunks []Chunk
	err    error
	gate   chan struct{}

	mu   sync.Mutex
	reqs []Request
}

func (b *scriptedBackend) GenerateStream(_ context.Context, req Request) iter.Seq2[Chunk, error] {
	b.mu.Lock()
	b.reqs = append(b.reqs, req)
	b.mu.Unlock()
	return func(yield func(Chunk, error) bool) {
		if b.gate != nil {
			<-b.gate
		}
		for _, c := range b.chunks {
			if !yield(c, nil) {
				return
			}
		}
		if b.err != nil {
			yield(Chunk{}, b.err)
		}
	}
}

// cancellingBackend yields one chunk, then cancels the caller's context
// and reports the cancellation, as an interrupted stream does.
type cancellingBackend struct {
	cancel context.CancelFunc
}

func (b *cancellingBackend) GenerateStream(ctx context.Context, _ Request) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		if !yield(Chunk{Text: "partial"}, nil) {
			return
		}
		b.cancel()
		yield(Chunk{}, ctx.Err())
	}
}

type recordingObserver struct {
	started   int
	chunks    []string
	committed *model.ModelMessage
	failed    error
}

func (o *recordingObserver) DraftStarted(d Draft) {
	o.started++
	o.chunks = append(o.chunks, d.Content())
}
func (o *recordingObserver) ChunkApplied(d Draft)            { o.chunks = append(o.chunks, d.Content()) }
func (o *recordingObserver) Committed(m *model.ModelMessage) { o.committed = m }
func (o *recordingObserver) Failed(_ Draft, err error)       { o.failed = err }

type fixture struct {
	store *store.Store
	set   *settings.Manager
	chats *chat.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "stream.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	set := settings.NewManager(st, nil)
	require.NoError(t, set.Load(ctx))
	_, err = set.AddAPIKey(ctx, "main", "secret")
	require.NoError(t, err)
	require.NoError(t, set.SetField(ctx, "defaultModel", "gemini-2.5-flash"))

	return &fixture{store: st, set: set, chats: chat.NewManager(st, set, chat.NewState(), nil)}
}

func (f *fixture) coordinator(b Backend) *Coordinator {
	return NewCoordinator(f.store, f.chats, f.set, b, nil)
}

func TestSendHelloInNewChat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.chats.CreateChat(ctx)
	require.NoError(t, err)

	b := &scriptedBackend{chunks: []Chunk{
		{Text: "Hi "},
		{Text: "there", Usage: &Usage{PromptTokens: 2, CandidatesTokens: 2, TotalTokens: 4}},
	}}
	obs := &recordingObserver{}
	res, err := f.coordinator(b).Send(ctx, "Hello", SendOptions{Observer: obs})
	require.NoError(t, err)

	require.Len(t, b.reqs, 1)
	req := b.reqs[0]
	assert.Equal(t, []Turn{}, req.History)
	assert.Equal(t, "Hello", req.Prompt)
	assert.Equal(t, "secret", req.APIKey)
	assert.Equal(t, "gemini-2.5-flash", req.Model)

	msgs, err := f.chats.Messages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role())
	stored, ok := msgs[1].(*model.ModelMessage)
	require.True(t, ok)
	assert.Equal(t, "Hi there", stored.Content)
	assert.False(t, stored.IsEdited)
	require.NotNil(t, stored.Usage)
	assert.Equal(t, 4, stored.Usage.TotalTokenCount)
	assert.Greater(t, stored.Timestamp, msgs[0].Base().Timestamp)
	assert.Equal(t, res.Reply.ID, stored.ID)

	assert.Equal(t, 1, obs.started)
	assert.Equal(t, []string{PendingMarker, "Hi ", "Hi there"}, obs.chunks)
	assert.Equal(t, stored.ID, obs.committed.ID)
	assert.False(t, f.chats.State().IsGenerating(c.ID))

	got, _ := f.chats.Chat(ctx, c.ID)
	assert.Equal(t, "Hello", got.Title)
}

func TestSendUsesPriorHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.chats.CreateChat(ctx)
	require.NoError(t, err)

	b := &scriptedBackend{chunks: []Chunk{{Text: "ok"}}}
	co := f.coordinator(b)
	_, err = co.Send(ctx, "first", SendOptions{ChatID: c.ID})
	require.NoError(t, err)
	_, err = co.Send(ctx, "second", SendOptions{ChatID: c.ID, Model: "other-model", SystemInstruction: "be brief"})
	require.NoError(t, err)

	req := b.reqs[1]
	assert.Equal(t, []Turn{{model.RoleUser, "first"}, {model.RoleModel, "ok"}}, req.History)
	assert.Equal(t, "other-model", req.Model)
	assert.Equal(t, "be brief", req.SystemInstruction)
}

func TestSendBackendFailureStoresErrorReply(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.chats.CreateChat(ctx)
	require.NoError(t, err)

	boom := errors.New("quota exceeded")
	b := &scriptedBackend{chunks: []Chunk{{Text: "par"}}, err: boom}
	obs := &recordingObserver{}
	_, err = f.coordinator(b).Send(ctx, "Hello", SendOptions{Observer: obs})

	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, berr, obs.failed)
	assert.Nil(t, obs.committed)

	msgs, _ := f.chats.Messages(ctx, c.ID)
	require.Len(t, msgs, 2)
	mm := msgs[1].(*model.ModelMessage)
	assert.True(t, mm.Failed())
	assert.Equal(t, "[Error] quota exceeded", mm.Content)
	assert.False(t, f.chats.State().IsGenerating(c.ID))

	// the failed reply is left out of the next request
	ok := &scriptedBackend{chunks: []Chunk{{Text: "fine"}}}
	_, err = f.coordinator(ok).Send(ctx, "again", SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Turn{{model.RoleUser, "Hello"}}, ok.reqs[0].History)
}

func TestSendInterruptedStillStoresErrorReply(t *testing.T) {
	f := newFixture(t)
	c, err := f.chats.CreateChat(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err = f.coordinator(&cancellingBackend{cancel: cancel}).Send(ctx, "Hello", SendOptions{})

	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, err.Error(), "save failed reply")

	msgs, err := f.chats.Messages(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	mm := msgs[1].(*model.ModelMessage)
	assert.True(t, mm.Failed())
	assert.Equal(t, "[Error] context canceled", mm.Content)
}

func TestSendWindowCountsThePrompt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.set.SetField(ctx, "contextWindowSize", "3"))
	c, err := f.chats.CreateChat(ctx)
	require.NoError(t, err)

	b := &scriptedBackend{chunks: []Chunk{{Text: "ok"}}}
	co := f.coordinator(b)
	_, err = co.Send(ctx, "one", SendOptions{ChatID: c.ID})
	require.NoError(t, err)
	_, err = co.Send(ctx, "two", SendOptions{ChatID: c.ID})
	require.NoError(t, err)
	_, err = co.Send(ctx, "three", SendOptions{ChatID: c.ID})
	require.NoError(t, err)

	// two prior slots plus the prompt
	assert.Equal(t, []Turn{{model.RoleUser, "two"}, {model.RoleModel, "ok"}}, b.reqs[2].History)
	assert.Equal(t, "three", b.reqs[2].Prompt)
}

func TestSendBlockedAndEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.chats.CreateChat(ctx)
	require.NoError(t, err)

	res, err := f.coordinator(&scriptedBackend{chunks: []Chunk{{BlockReason: "SAFETY"}}}).Send(ctx, "bad", SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, "[Blocked] Reason: SAFETY", res.Reply.Content)

	res, err = f.coordinator(&scriptedBackend{}).Send(ctx, "quiet", SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, EmptyMarker, res.Reply.Content)

	n, _ := f.chats.Messages(ctx, c.ID)
	assert.Len(t, n, 4)
}

func TestSendBusy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.chats.CreateChat(ctx)
	require.NoError(t, err)

	b := &scriptedBackend{chunks: []Chunk{{Text: "slow"}}, gate: make(chan struct{})}
	co := f.coordinator(b)

	done := make(chan error, 1)
	go func() {
		_, err := co.Send(ctx, "first", SendOptions{ChatID: c.ID})
		done <- err
	}()
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.reqs) == 1
	}, time.Second, time.Millisecond)

	_, err = co.Send(ctx, "second", SendOptions{ChatID: c.ID})
	assert.ErrorIs(t, err, ErrBusy)

	close(b.gate)
	require.NoError(t, <-done)

	msgs, _ := f.chats.Messages(ctx, c.ID)
	assert.Len(t, msgs, 2, "busy send stores nothing")
}

func TestSendPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	co := f.coordinator(&scriptedBackend{})

	_, err := co.Send(ctx, "hi", SendOptions{})
	assert.ErrorIs(t, err, ErrNoChat)

	_, err = f.chats.CreateChat(ctx)
	require.NoError(t, err)
	_, err = co.Send(ctx, "   ", SendOptions{})
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	_, err = co.Send(ctx, "hi", SendOptions{APIKeyID: "nope"})
	assert.ErrorIs(t, err, settings.ErrAPIKeyNotFound)

	_, err = co.Send(ctx, "hi", SendOptions{ChatID: "missing"})
	assert.ErrorIs(t, err, chat.ErrChatNotFound)
}
