package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rcliao/gchat/internal/chat"
	"github.com/rcliao/gchat/internal/model"
	"github.com/rcliao/gchat/internal/settings"
	"github.com/rcliao/gchat/internal/store"
)

var (
	// ErrBusy is returned when the chat already has a generation running.
	ErrBusy        = errors.New("chat is already generating")
	ErrNoChat      = errors.New("no chat selected")
	ErrEmptyPrompt = errors.New("prompt is empty")
	ErrNoModel     = errors.New("no model selected")
)

// BackendError wraps a transport or API failure during generation.
type BackendError struct {
	Model string
	Err   error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Model, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Observer receives progress for one request. Calls happen on the
// sending goroutine in order.
type Observer interface {
	DraftStarted(d Draft)
	ChunkApplied(d Draft)
	Committed(m *model.ModelMessage)
	Failed(d Draft, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) DraftStarted(Draft)            {}
func (NopObserver) ChunkApplied(Draft)            {}
func (NopObserver) Committed(*model.ModelMessage) {}
func (NopObserver) Failed(Draft, error)           {}

// SendOptions selects the target and overrides for one send. Empty
// fields fall back to the active chat, the settings default model and
// the default API key.
type SendOptions struct {
	ChatID            string
	Model             string
	APIKeyID          string
	SystemInstruction string
	Observer          Observer
}

// Result is the pair of messages a successful send stores.
type Result struct {
	User  *model.UserMessage
	Reply *model.ModelMessage
}

// Coordinator sends prompts and commits the streamed replies.
type Coordinator struct {
	store    *store.Store
	chats    *chat.Manager
	settings *settings.Manager
	backend  Backend
	logger   *slog.Logger
	now      func() time.Time
}

// NewCoordinator returns a Coordinator. A nil logger discards output.
func NewCoordinator(st *store.Store, chats *chat.Manager, set *settings.Manager, backend Backend, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		store:    st,
		chats:    chats,
		settings: set,
		backend:  backend,
		logger:   logger,
		now:      time.Now,
	}
}

func (c *Coordinator) pickModel(s settings.Settings, override string) string {
	if override != "" {
		return override
	}
	if s.DefaultModel != "" {
		return s.DefaultModel
	}
	if active := s.ActiveModels(); len(active) > 0 {
		return active[0].Name
	}
	return ""
}

// Send stores text as a user message, streams the model's reply and
// commits it with a single write. A send for a chat that is already
// generating returns ErrBusy without side effects. On backend failure an
// error-marked reply is stored and a *BackendError is returned.
func (c *Coordinator) Send(ctx context.Context, text string, opts SendOptions) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyPrompt
	}
	obs := opts.Observer
	if obs == nil {
		obs = NopObserver{}
	}

	chatID := opts.ChatID
	if chatID == "" {
		chatID = c.chats.ActiveID()
	}
	if chatID == "" {
		return nil, ErrNoChat
	}
	if _, err := c.chats.Chat(ctx, chatID); err != nil {
		return nil, err
	}

	s := c.settings.Get()
	key, err := c.settings.ResolveAPIKey(opts.APIKeyID)
	if err != nil {
		return nil, err
	}
	modelName := c.pickModel(s, opts.Model)
	if modelName == "" {
		return nil, ErrNoModel
	}

	state := c.chats.State()
	if !state.BeginGeneration(chatID) {
		return nil, ErrBusy
	}
	defer state.EndGeneration(chatID)
	log := c.logger.With("chat", chatID, "model", modelName)
	log.Debug("phase", "phase", Sending)

	prior, err := c.store.Messages.ForChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	req := newRequest(s)
	req.APIKey = key.Key
	req.Model = modelName
	req.SystemInstruction = opts.SystemInstruction
	// The window counts the new prompt, so one slot less goes to prior turns.
	req.History = AssembleHistory(prior, max(s.ContextWindowSize-1, 0), s.UnlimitedContext)
	req.Prompt = text

	user := &model.UserMessage{MessageBase: model.MessageBase{
		ID:        model.NewID(),
		ChatID:    chatID,
		Content:   text,
		Timestamp: c.now().UnixMilli(),
	}}
	if err := c.store.Messages.Add(ctx, user); err != nil {
		return nil, fmt.Errorf("save prompt: %w", err)
	}
	if err := c.chats.AutoTitle(ctx, chatID, text); err != nil {
		log.Warn("could not title chat", "err", err)
	}

	draft := NewDraft(model.NewID(), chatID, modelName, max(c.now().UnixMilli(), user.Timestamp+1))
	obs.DraftStarted(draft)
	log.Debug("phase", "phase", Streaming, "history", len(req.History))

	// The terminal write must land even if the caller gives up mid-stream.
	commitCtx := context.WithoutCancel(ctx)
	start := c.now()
	for chunk, err := range c.backend.GenerateStream(ctx, req) {
		if err != nil {
			return &Result{User: user}, c.fail(commitCtx, log, obs, draft, err)
		}
		draft = ApplyChunk(draft, chunk)
		obs.ChunkApplied(draft)
	}

	draft.Phase = Finalizing
	reply := Finalize(draft, c.now().Sub(start))
	if draft.BlockReason != "" {
		log.Warn("response blocked", "reason", draft.BlockReason)
	} else if reply.Content == EmptyMarker {
		log.Warn("empty response")
	}
	if err := c.store.Messages.Put(commitCtx, reply); err != nil {
		return &Result{User: user}, fmt.Errorf("save reply: %w", err)
	}
	draft.Phase = Committed
	obs.Committed(reply)
	log.Info("reply committed", "message", reply.ID, "total_tokens", reply.Usage.TotalTokenCount)

	return &Result{User: user, Reply: reply}, nil
}

func (c *Coordinator) fail(ctx context.Context, log *slog.Logger, obs Observer, d Draft, err error) error {
	d.Phase = Failed
	berr := &BackendError{Model: d.Model, Err: err}
	log.Error("generation failed", "err", err)

	msg := FailedMessage(d, err)
	if perr := c.store.Messages.Put(ctx, msg); perr != nil {
		obs.Failed(d, berr)
		return errors.Join(berr, fmt.Errorf("save failed reply: %w", perr))
	}
	obs.Failed(d, berr)
	return berr
}
