// Package openai defines the intermediate wire format claudish speaks
// north-facing: the OpenAI chat-completions request/response/stream-chunk
// shapes, including the permissive passthrough fields different backends
// use for reasoning content.
package openai

import "encoding/json"

// Request is the outbound chat-completions payload.
type Request struct {
	Model       string          `json:"model"`
	Messages    []Message       `json:"messages"`
	Tools       []Tool          `json:"tools,omitempty"`
	ToolChoice  json.RawMessage `json:"tool_choice,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream"`
	StreamOpts  *StreamOptions  `json:"stream_options,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
}

// StreamOptions asks compliant backends to include a usage record on the
// final SSE chunk.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// Message is one chat-completions message. Content may be a string or a
// ContentPart array (Content holds whichever was built, already encoded);
// ToolCalls/ToolCallID
// are set on assistant/tool messages respectively.
type Message struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

// ContentPart is a multimodal content fragment (text or image_url).
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// ToolCall is an assistant-emitted function call, either whole (on a
// Message) or fragmentary (on a StreamChunk delta, keyed by Index).
type ToolCall struct {
	Index    int          `json:"index"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function ToolCallFunc `json:"function"`
}

type ToolCallFunc struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Tool is an outbound function declaration.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Usage is the token-accounting block a backend may attach to a chunk or a
// non-streaming response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Total returns prompt+completion, falling back to TotalTokens if the
// individual counters are absent.
func (u *Usage) Total() int {
	if u == nil {
		return 0
	}
	if u.PromptTokens+u.CompletionTokens > 0 {
		return u.PromptTokens + u.CompletionTokens
	}
	return u.TotalTokens
}

// StreamChunk is one `data: {...}` line of an SSE chat-completions
// response. Reasoning fields are kept permissive since vendors disagree on
// shape: reasoning (string), reasoning_content (string, DeepSeek-style),
// reasoning_details (array, OpenRouter-style).
type StreamChunk struct {
	ID      string         `json:"id,omitempty"`
	Model   string         `json:"model,omitempty"`
	Choices []StreamChoice `json:"choices"`
	Usage   *Usage         `json:"usage,omitempty"`
}

type StreamChoice struct {
	Index        int          `json:"index"`
	Delta        StreamDelta  `json:"delta"`
	FinishReason *string      `json:"finish_reason"`
}

// StreamDelta carries the incremental fragment for this chunk. Exactly one
// of Content/Reasoning/ReasoningContent is normally populated besides
// ToolCalls.
type StreamDelta struct {
	Role             string            `json:"role,omitempty"`
	Content          string            `json:"content,omitempty"`
	Reasoning        string            `json:"reasoning,omitempty"`
	ReasoningContent string            `json:"reasoning_content,omitempty"`
	ReasoningDetails []ReasoningDetail `json:"reasoning_details,omitempty"`
	ToolCalls        []ToolCall        `json:"tool_calls,omitempty"`
}

// ReasoningDetail is OpenRouter's structured reasoning fragment shape.
type ReasoningDetail struct {
	Type      string `json:"type,omitempty"`
	Text      string `json:"text,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Encrypted string `json:"encrypted,omitempty"`
}

// ReasoningText extracts whatever reasoning fragment is present on this
// delta, preferring the plain string fields and falling back to
// concatenating reasoning_details.
func (d *StreamDelta) ReasoningText() string {
	if d.Reasoning != "" {
		return d.Reasoning
	}
	if d.ReasoningContent != "" {
		return d.ReasoningContent
	}
	if len(d.ReasoningDetails) == 0 {
		return ""
	}
	out := ""
	for _, rd := range d.ReasoningDetails {
		if rd.Text != "" {
			out += rd.Text
		} else if rd.Summary != "" {
			out += rd.Summary
		}
	}
	return out
}
