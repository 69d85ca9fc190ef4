// Package anchor defines the data model of the client-facing streaming chat
// protocol claudish terminates: requests, content blocks, and the
// discriminated event union emitted over SSE.
package anchor

import (
	"encoding/json"
	"strings"
)

// Request is the body of a POST /v1/messages call.
type Request struct {
	Model         string          `json:"model"`
	MaxTokens     int             `json:"max_tokens"`
	Messages      []Message       `json:"messages"`
	System        json.RawMessage `json:"system,omitempty"`
	Tools         []Tool          `json:"tools,omitempty"`
	ToolChoice    json.RawMessage `json:"tool_choice,omitempty"`
	Temperature   *float64        `json:"temperature,omitempty"`
	Stream        bool            `json:"stream"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`

	// Raw holds the undecoded request body, set by the HTTP handler after
	// decoding, so callers can recover top-level fields this struct doesn't
	// model (spec.md §4.1 step 6: "Unknown top-level fields are recorded in
	// dropped_params"). Never itself (de)serialized.
	Raw json.RawMessage `json:"-"`
}

// knownRequestFields is every top-level key Request decodes.
var knownRequestFields = map[string]bool{
	"model": true, "max_tokens": true, "messages": true, "system": true,
	"tools": true, "tool_choice": true, "temperature": true, "stream": true,
	"stop_sequences": true, "metadata": true,
}

// UnknownTopLevelFields reports which keys of Raw aren't modeled by Request,
// in the order they appear in the document.
func (r Request) UnknownTopLevelFields() []string {
	if len(r.Raw) == 0 {
		return nil
	}

	// A plain map[string]json.RawMessage decode would work too but loses
	// source order; walk the token stream instead for a stable key list.
	dec := json.NewDecoder(strings.NewReader(string(r.Raw)))
	var unknown []string
	seen := map[string]bool{}
	if t, err := dec.Token(); err != nil || t != json.Delim('{') {
		return nil
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			break
		}
		key, _ := keyTok.(string)
		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			break
		}
		if key == "" || seen[key] || knownRequestFields[key] {
			continue
		}
		seen[key] = true
		unknown = append(unknown, key)
	}
	return unknown
}

// Message is one turn of conversation. Content is either a plain string or
// an array of Blocks; Blocks below normalizes it.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// Blocks decodes Message.Content into a normalized []Block, whether it was
// sent as a bare string or as an array of typed blocks.
func (m Message) Blocks() ([]Block, error) {
	if len(m.Content) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return []Block{{Type: BlockText, Text: s}}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(m.Content, &raw); err != nil {
		return nil, err
	}
	blocks := make([]Block, 0, len(raw))
	for _, r := range raw {
		var b Block
		if err := json.Unmarshal(r, &b); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// BlockType discriminates the kinds of content a Block can carry.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockImage      BlockType = "image"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockThinking   BlockType = "thinking"
)

// Block is a tagged union over the content kinds a Message can carry.
type Block struct {
	Type BlockType `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// image
	Source *ImageSource `json:"source,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// ImageSource carries inline base64 image data.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// Tool is a client-declared callable function with a JSON schema.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Usage mirrors the four usage counters carried on message_start and
// message_delta events.
type Usage struct {
	InputTokens              int `json:"input_tokens,omitempty"`
	OutputTokens             int `json:"output_tokens,omitempty"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// StopReason is one of the terminal reasons a message can end with.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopMaxTokens    StopReason = "max_tokens"
	StopToolUse      StopReason = "tool_use"
	StopStopSequence StopReason = "stop_sequence"
)
