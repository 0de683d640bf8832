// Package stream runs one generation request per chat: it assembles the
// outgoing history, folds streamed chunks into a draft and commits the
// finished model message.
package stream

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rcliao/gchat/internal/model"
)

// Content markers written in place of a normal answer.
const (
	PendingMarker = "..."
	EmptyMarker   = "[Empty Response] The model returned an empty response."
	blockedFormat = "[Blocked] Reason: %s"
	errorFormat   = "[Error] %s"
)

// Phase is the lifecycle state of one generation request.
type Phase int

const (
	Idle Phase = iota
	Sending
	Streaming
	Finalizing
	Committed
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Streaming:
		return "streaming"
	case Finalizing:
		return "finalizing"
	case Committed:
		return "committed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Usage is the token accounting reported by the backend.
type Usage struct {
	PromptTokens     int
	CandidatesTokens int
	ThoughtsTokens   int
	TotalTokens      int
}

// Chunk is one streamed fragment. Any field may be empty.
type Chunk struct {
	Text        string
	Thought     string
	ToolCalls   []model.ToolCall
	BlockReason string
	Usage       *Usage
}

// Draft is the in-memory accumulation of a streaming answer. It is never
// persisted before Finalize.
type Draft struct {
	ID        string
	ChatID    string
	Model     string
	Timestamp int64
	Phase     Phase

	Answer      string
	Thinking    string
	ToolCalls   []model.ToolCall
	BlockReason string
	Usage       Usage

	// Started is set once any answer or thinking text has arrived.
	Started bool
}

// NewDraft returns an empty draft in the Streaming phase.
func NewDraft(id, chatID, modelName string, ts int64) Draft {
	return Draft{ID: id, ChatID: chatID, Model: modelName, Timestamp: ts, Phase: Streaming}
}

// ApplyChunk folds c into d and returns the new draft. d is not modified.
// Answer and thinking text go to separate buffers in arrival order; tool
// calls are appended; the latest block reason and usage win.
func ApplyChunk(d Draft, c Chunk) Draft {
	if c.Text != "" {
		d.Answer += c.Text
		d.Started = true
	}
	if c.Thought != "" {
		d.Thinking += c.Thought
		d.Started = true
	}
	if len(c.ToolCalls) > 0 {
		d.ToolCalls = append(slices.Clip(d.ToolCalls), c.ToolCalls...)
	}
	if c.BlockReason != "" {
		d.BlockReason = c.BlockReason
	}
	if c.Usage != nil {
		d.Usage = *c.Usage
	}
	return d
}

// Content is what a viewer should show for the draft right now.
func (d Draft) Content() string {
	if !d.Started {
		return PendingMarker
	}
	if d.Thinking != "" && d.Answer != "" {
		return d.Thinking + "\n\n---\n\n" + d.Answer
	}
	return d.Thinking + d.Answer
}

// ComputeUsage derives message statistics from backend counts. Other
// tokens are clipped at zero; tokens per second is 0 when nothing was
// generated or no time elapsed, else rounded to two decimals.
func ComputeUsage(u Usage, elapsed time.Duration) *model.UsageStats {
	ms := elapsed.Milliseconds()
	stats := &model.UsageStats{
		ResponseTimeMs:       ms,
		PromptTokenCount:     u.PromptTokens,
		CompletionTokenCount: u.CandidatesTokens,
		ThoughtsTokenCount:   u.ThoughtsTokens,
		TotalTokenCount:      u.TotalTokens,
		OtherTokenCount:      max(0, u.TotalTokens-(u.PromptTokens+u.CandidatesTokens+u.ThoughtsTokens)),
	}
	if u.CandidatesTokens > 0 && ms > 0 {
		tps := float64(u.CandidatesTokens) / (float64(ms) / 1000)
		stats.TokensPerSecond = math.Round(tps*100) / 100
	}
	return stats
}

// Finalize turns a completed draft into the model message to commit. A
// blocked or empty answer is replaced by its marker.
func Finalize(d Draft, elapsed time.Duration) *model.ModelMessage {
	content := d.Answer
	switch {
	case d.BlockReason != "":
		content = fmt.Sprintf(blockedFormat, d.BlockReason)
	case strings.TrimSpace(d.Answer) == "":
		content = EmptyMarker
	}
	return &model.ModelMessage{
		MessageBase: model.MessageBase{
			ID:        d.ID,
			ChatID:    d.ChatID,
			Content:   content,
			Timestamp: d.Timestamp,
		},
		ModelUsed:       d.Model,
		Usage:           ComputeUsage(d.Usage, elapsed),
		ThinkingContent: strings.TrimSpace(d.Thinking),
		ThinkingSteps:   d.ToolCalls,
	}
}

// FailedMessage records a failed generation. Partial output is kept in
// the thinking fields; the content is the error marker.
func FailedMessage(d Draft, err error) *model.ModelMessage {
	return &model.ModelMessage{
		MessageBase: model.MessageBase{
			ID:        d.ID,
			ChatID:    d.ChatID,
			Content:   fmt.Sprintf(errorFormat, err),
			Timestamp: d.Timestamp,
		},
		ModelUsed:       d.Model,
		ThinkingContent: strings.TrimSpace(d.Thinking),
		ThinkingSteps:   d.ToolCalls,
		Error:           err.Error(),
	}
}
