package anchor

// EventType names the SSE `event:` line; the payload follows as `data:`.
type EventType string

const (
	EventMessageStart      EventType = "message_start"
	EventContentBlockStart EventType = "content_block_start"
	EventContentBlockDelta EventType = "content_block_delta"
	EventContentBlockStop  EventType = "content_block_stop"
	EventMessageDelta      EventType = "message_delta"
	EventMessageStop       EventType = "message_stop"
	EventPing              EventType = "ping"
	EventError             EventType = "error"
)

// Event pairs the SSE event name with its JSON-serializable payload. The
// HTTP writer emits "event: <Type>\ndata: <json(Payload)>\n\n".
type Event struct {
	Type    EventType
	Payload any
}

// MessageStartPayload is the data of a message_start event.
type MessageStartPayload struct {
	Type    string         `json:"type"`
	Message MessageStartMsg `json:"message"`
}

type MessageStartMsg struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Model   string `json:"model"`
	Content []any  `json:"content"`
	Usage   Usage  `json:"usage"`
}

// ContentBlockStartPayload is the data of a content_block_start event.
type ContentBlockStartPayload struct {
	Type         string       `json:"type"`
	Index        int          `json:"index"`
	ContentBlock ContentBlock `json:"content_block"`
}

// ContentBlock describes the block being opened; fields are populated
// according to Type.
type ContentBlock struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Input any    `json:"input,omitempty"`
}

// ContentBlockDeltaPayload is the data of a content_block_delta event.
type ContentBlockDeltaPayload struct {
	Type  string     `json:"type"`
	Index int        `json:"index"`
	Delta BlockDelta `json:"delta"`
}

// BlockDelta is a tagged union over text_delta, input_json_delta, and
// thinking_delta fragments.
type BlockDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
}

// ContentBlockStopPayload is the data of a content_block_stop event.
type ContentBlockStopPayload struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDeltaPayload is the data of a message_delta event.
type MessageDeltaPayload struct {
	Type  string            `json:"type"`
	Delta MessageDeltaBody  `json:"delta"`
	Usage MessageDeltaUsage `json:"usage"`
}

type MessageDeltaBody struct {
	StopReason   StopReason `json:"stop_reason"`
	StopSequence *string    `json:"stop_sequence"`
}

// MessageDeltaUsage extends Usage with the optional cache_creation detail
// object some vendor clients expect on "create" turns.
type MessageDeltaUsage struct {
	OutputTokens             int            `json:"output_tokens"`
	CacheCreationInputTokens int            `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int            `json:"cache_read_input_tokens,omitempty"`
	CacheCreation            *CacheCreation `json:"cache_creation,omitempty"`
}

type CacheCreation struct {
	Ephemeral5mInputTokens int `json:"ephemeral_5m_input_tokens"`
}

// MessageStopPayload is the data of a message_stop event.
type MessageStopPayload struct {
	Type string `json:"type"`
}

// PingPayload is the data of a ping event.
type PingPayload struct {
	Type string `json:"type"`
}

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	Type  string      `json:"type"`
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
