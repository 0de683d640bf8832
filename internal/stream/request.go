package stream

import (
	"context"
	"iter"

	"github.com/rcliao/gchat/internal/settings"
)

// Generation holds sampling parameters.
type Generation struct {
	Temperature     float64
	TopP            float64
	MaxOutputTokens int
}

// ThinkingConfig controls model reasoning output. Budget -1 lets the
// model choose; 0 disables thinking.
type ThinkingConfig struct {
	IncludeThoughts bool
	Budget          int
}

// Tools lists the built-in tools to enable.
type Tools struct {
	GoogleSearch bool
	URLContext   bool
}

// Request is one generation call. History excludes Prompt, which is sent
// as the final user turn.
type Request struct {
	APIKey            string
	Model             string
	SystemInstruction string
	History           []Turn
	Prompt            string
	Generation        Generation
	Thinking          *ThinkingConfig
	Tools             Tools
}

// Backend streams a model's response to a request. The sequence ends
// after the last chunk or at the first error.
type Backend interface {
	GenerateStream(ctx context.Context, req Request) iter.Seq2[Chunk, error]
}

// ThinkingFrom maps the thinking toggles in s to a request config. nil
// means no thinking config is sent.
func ThinkingFrom(s settings.Settings) *ThinkingConfig {
	switch {
	case s.DisableThinking:
		return &ThinkingConfig{Budget: 0}
	case !s.EnableThinking:
		return nil
	case s.EnableDynamicThinking:
		return &ThinkingConfig{IncludeThoughts: true, Budget: -1}
	default:
		return &ThinkingConfig{IncludeThoughts: true, Budget: s.ThinkingBudget}
	}
}

// newRequest fills the settings-derived parts of a request.
func newRequest(s settings.Settings) Request {
	return Request{
		Generation: Generation{
			Temperature:     s.Temperature,
			TopP:            s.TopP,
			MaxOutputTokens: s.MaxOutputTokens,
		},
		Thinking: ThinkingFrom(s),
		Tools: Tools{
			GoogleSearch: s.EnableGoogleSearchGrounding,
			URLContext:   s.EnableURLContext,
		},
	}
}
