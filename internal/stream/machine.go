package stream

import (
	"encoding/json"

	"github.com/blackfuel-ai/claudish/internal/anchor"
	"github.com/blackfuel-ai/claudish/internal/openai"
)

// StopReasonFor maps an OpenAI finish_reason to an Anchor stop_reason
// (spec.md §4.2 "Stop-reason mapping").
func StopReasonFor(finish string) anchor.StopReason {
	switch finish {
	case "stop":
		return anchor.StopEndTurn
	case "length":
		return anchor.StopMaxTokens
	case "tool_calls", "function_call":
		return anchor.StopToolUse
	case "content_filter":
		return anchor.StopStopSequence
	default:
		return anchor.StopEndTurn
	}
}

// Start builds the message_start event. Called once, on first backend
// bytes (spec.md §4.2 "Initialization").
func Start(messageID, model string) anchor.Event {
	return anchor.Event{
		Type: anchor.EventMessageStart,
		Payload: anchor.MessageStartPayload{
			Type: "message_start",
			Message: anchor.MessageStartMsg{
				ID:      messageID,
				Type:    "message",
				Role:    "assistant",
				Model:   model,
				Content: []any{},
				Usage:   anchor.Usage{},
			},
		},
	}
}

// Step consumes one backend chunk against State and returns the Anchor
// events it produces, mutating State in place. This is the translator's
// step function: State×Chunk → State×[Event].
func Step(s *State, chunk openai.StreamChunk, policy ReasoningPolicy, mintToolID func() string) []anchor.Event {
	if s.Closed {
		return nil
	}
	if chunk.Usage != nil {
		if chunk.Usage.PromptTokens > 0 {
			s.InputTokensSeen = chunk.Usage.PromptTokens
		}
		if chunk.Usage.CompletionTokens > 0 {
			s.OutputTokensSeen = chunk.Usage.CompletionTokens
		}
	}
	if len(chunk.Choices) == 0 {
		return nil
	}

	choice := chunk.Choices[0]
	delta := choice.Delta
	var events []anchor.Event

	text := delta.Content
	if text == "" && policy != ReasoningSuppress {
		if reasoning := delta.ReasoningText(); reasoning != "" {
			if policy == ReasoningAsText {
				text = reasoning
			} else {
				events = append(events, s.emitThinking(reasoning)...)
			}
		}
	} else if text != "" {
		// content present: close any dangling thinking block first so
		// indices stay monotonic and blocks never interleave.
		events = append(events, s.closeThinkingIfOpen()...)
	}

	if text != "" {
		events = append(events, s.emitText(text)...)
	}

	for i := range delta.ToolCalls {
		events = append(events, s.emitToolDelta(delta.ToolCalls[i], mintToolID)...)
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		s.StopReason = *choice.FinishReason
	}

	return events
}

func (s *State) emitText(text string) []anchor.Event {
	s.OutputCharsSeen += len(text)
	var events []anchor.Event
	if !s.TextBlock.Open {
		s.TextBlock.Index = s.allocIndex()
		s.TextBlock.Open = true
		events = append(events, anchor.Event{
			Type: anchor.EventContentBlockStart,
			Payload: anchor.ContentBlockStartPayload{
				Type:         "content_block_start",
				Index:        s.TextBlock.Index,
				ContentBlock: anchor.ContentBlock{Type: "text", Text: ""},
			},
		})
	}
	events = append(events, anchor.Event{
		Type: anchor.EventContentBlockDelta,
		Payload: anchor.ContentBlockDeltaPayload{
			Type:  "content_block_delta",
			Index: s.TextBlock.Index,
			Delta: anchor.BlockDelta{Type: "text_delta", Text: text},
		},
	})
	return events
}

func (s *State) emitThinking(text string) []anchor.Event {
	var events []anchor.Event
	if !s.ThinkingBlock.Open {
		s.ThinkingBlock.Index = s.allocIndex()
		s.ThinkingBlock.Open = true
		events = append(events, anchor.Event{
			Type: anchor.EventContentBlockStart,
			Payload: anchor.ContentBlockStartPayload{
				Type:         "content_block_start",
				Index:        s.ThinkingBlock.Index,
				ContentBlock: anchor.ContentBlock{Type: "thinking"},
			},
		})
	}
	events = append(events, anchor.Event{
		Type: anchor.EventContentBlockDelta,
		Payload: anchor.ContentBlockDeltaPayload{
			Type:  "content_block_delta",
			Index: s.ThinkingBlock.Index,
			Delta: anchor.BlockDelta{Type: "thinking_delta", Thinking: text},
		},
	})
	return events
}

// closeThinkingIfOpen closes a dangling thinking block before a text or
// tool block opens (spec.md §4.3: "Close it before any text or tool block
// is opened thereafter").
func (s *State) closeThinkingIfOpen() []anchor.Event {
	if !s.ThinkingBlock.Open {
		return nil
	}
	idx := s.ThinkingBlock.Index
	s.ThinkingBlock.Open = false
	return []anchor.Event{{
		Type:    anchor.EventContentBlockStop,
		Payload: anchor.ContentBlockStopPayload{Type: "content_block_stop", Index: idx},
	}}
}

func (s *State) closeTextIfOpen() []anchor.Event {
	if !s.TextBlock.Open {
		return nil
	}
	idx := s.TextBlock.Index
	s.TextBlock.Open = false
	return []anchor.Event{{
		Type:    anchor.EventContentBlockStop,
		Payload: anchor.ContentBlockStopPayload{Type: "content_block_stop", Index: idx},
	}}
}

// emitToolDelta handles one delta.tool_calls entry (spec.md §4.2 "Tool
// handling"): a text block must close before a tool block opens, slots are
// keyed by the backend's integer index, and names/arguments may arrive
// fragmented across chunks.
func (s *State) emitToolDelta(tc openai.ToolCall, mintToolID func() string) []anchor.Event {
	var events []anchor.Event

	tb, isNew := s.toolBlock(tc.Index)
	if isNew {
		events = append(events, s.closeTextIfOpen()...)
		events = append(events, s.closeThinkingIfOpen()...)

		id := tc.ID
		if id == "" {
			id = mintToolID()
		}
		tb.ID = id
		tb.Name = tc.Function.Name
		tb.BlockIndex = s.allocIndex()
		tb.Started = true

		events = append(events, anchor.Event{
			Type: anchor.EventContentBlockStart,
			Payload: anchor.ContentBlockStartPayload{
				Type:  "content_block_start",
				Index: tb.BlockIndex,
				ContentBlock: anchor.ContentBlock{
					Type:  "tool_use",
					ID:    tb.ID,
					Name:  tb.Name,
					Input: map[string]any{},
				},
			},
		})
	} else {
		if tc.ID != "" {
			tb.ID = tc.ID
		}
		if tc.Function.Name != "" {
			tb.Name += tc.Function.Name
		}
	}

	if tc.Function.Arguments != "" {
		tb.ArgChars.WriteString(tc.Function.Arguments)
		events = append(events, anchor.Event{
			Type: anchor.EventContentBlockDelta,
			Payload: anchor.ContentBlockDeltaPayload{
				Type:  "content_block_delta",
				Index: tb.BlockIndex,
				Delta: anchor.BlockDelta{Type: "input_json_delta", PartialJSON: tc.Function.Arguments},
			},
		})
	}

	return events
}

// Finalize implements spec.md §4.2 "Termination": close any still-open
// blocks, emit message_delta and message_stop, and mark the stream closed.
// onToolAssembled is called once per tool block with non-empty arg_chars,
// with its parsed arguments (nil if arg_chars failed to parse as JSON, in
// which case err is set); blocks with no arguments are closed without a
// call. The caller can additionally validate against the tool's declared
// input_schema; neither failure is ever fatal here (spec.md §4.2, §7).
func Finalize(s *State, usage anchor.MessageDeltaUsage, onToolAssembled func(toolName string, args map[string]any, err error)) []anchor.Event {
	if s.Closed {
		return nil
	}
	var events []anchor.Event

	for _, slot := range s.toolOrder {
		tb := s.ToolBlocks[slot]
		if tb.Closed {
			continue
		}
		if argStr := tb.ArgChars.String(); argStr != "" && onToolAssembled != nil {
			var parsed map[string]any
			if err := json.Unmarshal([]byte(argStr), &parsed); err != nil {
				onToolAssembled(tb.Name, nil, err)
			} else {
				onToolAssembled(tb.Name, parsed, nil)
			}
		}
		tb.Closed = true
		events = append(events, anchor.Event{
			Type:    anchor.EventContentBlockStop,
			Payload: anchor.ContentBlockStopPayload{Type: "content_block_stop", Index: tb.BlockIndex},
		})
	}

	events = append(events, s.closeTextIfOpen()...)
	events = append(events, s.closeThinkingIfOpen()...)

	stopReason := StopReasonFor(s.StopReason)
	events = append(events, anchor.Event{
		Type: anchor.EventMessageDelta,
		Payload: anchor.MessageDeltaPayload{
			Type: "message_delta",
			Delta: anchor.MessageDeltaBody{
				StopReason: stopReason,
			},
			Usage: usage,
		},
	})
	events = append(events, anchor.Event{
		Type:    anchor.EventMessageStop,
		Payload: anchor.MessageStopPayload{Type: "message_stop"},
	})

	s.Closed = true
	return events
}

// Ping builds a keep-alive event; the ping task (StartPingTask) checks the
// Writer's Closed flag before writing it, and Writer.Write is itself a
// no-op once closed (spec.md §4.2 "Idempotency").
func Ping() anchor.Event {
	return anchor.Event{Type: anchor.EventPing, Payload: anchor.PingPayload{Type: "ping"}}
}

// Abort implements spec.md §7: a failure detected after message_start closes
// any still-open blocks, emits a single error event, then message_stop. No
// message_delta is emitted since there's no coherent stop_reason to report.
func Abort(s *State, kind, message string) []anchor.Event {
	if s.Closed {
		return nil
	}
	var events []anchor.Event

	for _, slot := range s.toolOrder {
		tb := s.ToolBlocks[slot]
		if tb.Closed {
			continue
		}
		tb.Closed = true
		events = append(events, anchor.Event{
			Type:    anchor.EventContentBlockStop,
			Payload: anchor.ContentBlockStopPayload{Type: "content_block_stop", Index: tb.BlockIndex},
		})
	}
	events = append(events, s.closeTextIfOpen()...)
	events = append(events, s.closeThinkingIfOpen()...)

	events = append(events, anchor.Event{
		Type: anchor.EventError,
		Payload: anchor.ErrorPayload{
			Type:  "error",
			Error: anchor.ErrorDetail{Type: kind, Message: message},
		},
	})
	events = append(events, anchor.Event{
		Type:    anchor.EventMessageStop,
		Payload: anchor.MessageStopPayload{Type: "message_stop"},
	})

	s.Closed = true
	return events
}
