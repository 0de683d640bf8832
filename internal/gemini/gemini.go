// Package gemini implements the streaming backend on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/rcliao/gchat/internal/model"
	"github.com/rcliao/gchat/internal/stream"
)

// Backend talks to the Gemini API, keeping one client per API key.
type Backend struct {
	mu      sync.Mutex
	clients map[string]*genai.Client
	logger  *slog.Logger
}

// New returns a Backend. A nil logger discards output.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{clients: make(map[string]*genai.Client), logger: logger}
}

func (b *Backend) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("empty api key")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.clients[apiKey]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	b.clients[apiKey] = c
	return c, nil
}

// GenerateStream streams the response to req as chunks.
func (b *Backend) GenerateStream(ctx context.Context, req stream.Request) iter.Seq2[stream.Chunk, error] {
	return func(yield func(stream.Chunk, error) bool) {
		c, err := b.client(ctx, req.APIKey)
		if err != nil {
			yield(stream.Chunk{}, err)
			return
		}
		b.logger.Debug("generate", "model", req.Model, "history", len(req.History))

		for resp, err := range c.Models.GenerateContentStream(ctx, req.Model, contents(req), config(req)) {
			if err != nil {
				yield(stream.Chunk{}, err)
				return
			}
			if !yield(chunkFrom(resp), nil) {
				return
			}
		}
	}
}

// ListModels returns the names of the models offered to apiKey, without
// the "models/" prefix.
func (b *Backend) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	c, err := b.client(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	var names []string
	for m, err := range c.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list models: %w", err)
		}
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
	}
	return names, nil
}

func contents(req stream.Request) []*genai.Content {
	out := make([]*genai.Content, 0, len(req.History)+1)
	for _, t := range req.History {
		role := genai.Role(genai.RoleUser)
		if t.Role == model.RoleModel {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(t.Text, role))
	}
	return append(out, genai.NewContentFromText(req.Prompt, genai.RoleUser))
}

func config(req stream.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Generation.Temperature)),
		TopP:        genai.Ptr(float32(req.Generation.TopP)),
	}
	if req.Generation.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.Generation.MaxOutputTokens)
	}
	if s := strings.TrimSpace(req.SystemInstruction); s != "" {
		cfg.SystemInstruction = genai.NewContentFromText(s, genai.RoleUser)
	}
	if t := req.Thinking; t != nil {
		cfg.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: t.IncludeThoughts,
			ThinkingBudget:  genai.Ptr(int32(t.Budget)),
		}
	}
	if req.Tools.GoogleSearch {
		cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
	}
	if req.Tools.URLContext {
		cfg.Tools = append(cfg.Tools, &genai.Tool{URLContext: &genai.URLContext{}})
	}
	return cfg
}

func chunkFrom(resp *genai.GenerateContentResponse) stream.Chunk {
	var c stream.Chunk
	if resp == nil {
		return c
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var text, thought strings.Builder
		for _, p := range resp.Candidates[0].Content.Parts {
			switch {
			case p == nil:
			case p.Thought && p.Text != "":
				thought.WriteString(p.Text)
			case p.Text != "":
				text.WriteString(p.Text)
			case p.FunctionCall != nil:
				c.ToolCalls = append(c.ToolCalls, model.ToolCall{Name: p.FunctionCall.Name, Args: p.FunctionCall.Args})
			}
		}
		c.Text = text.String()
		c.Thought = thought.String()
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		c.BlockReason = string(fb.BlockReason)
	}
	if u := resp.UsageMetadata; u != nil {
		c.Usage = &stream.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CandidatesTokens: int(u.CandidatesTokenCount),
			ThoughtsTokens:   int(u.ThoughtsTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return c
}
