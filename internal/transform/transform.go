// Package transform converts an Anchor request into the intermediate
// OpenAI chat-completions form: folding system content, flattening
// multimodal blocks, rewriting tool calls and results, and normalizing
// tool schemas.
package transform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blackfuel-ai/claudish/internal/anchor"
	"github.com/blackfuel-ai/claudish/internal/openai"
	apierrors "github.com/blackfuel-ai/claudish/pkg/errors"
)

// identityPatterns match assistant preambles that disclose the vendor
// identity of a swapped-out model; such messages are dropped so a local
// model doesn't inherit an upstream model's self-description.
var identityPatterns = []string{
	"i am claude",
	"i'm claude",
	"as claude,",
	"i am an ai assistant made by anthropic",
	"developed by anthropic",
}

// Result is the outcome of Transform: the OpenAI payload, any top-level
// Anchor fields that had no OpenAI equivalent, and the sanitized tool name
// -> declared input_schema map used for post-assembly validation.
type Result struct {
	Request       openai.Request
	DroppedParams []string
	ToolSchemas   map[string]json.RawMessage
}

// Transform implements the Request Transformer contract: a pure function
// from an AnchorRequest to (OpenAIRequest, dropped_params).
func Transform(req anchor.Request) (Result, error) {
	if len(req.Messages) == 0 {
		return Result{}, apierrors.Validation("messages must not be empty")
	}

	out := openai.Request{
		Model:  req.Model,
		Stream: req.Stream,
	}
	dropped := req.UnknownTopLevelFields()

	if sysMsg, ok, err := systemMessage(req.System); err != nil {
		return Result{}, apierrors.Wrap(apierrors.KindValidation, "invalid system content", err)
	} else if ok {
		out.Messages = append(out.Messages, sysMsg)
	}

	for _, msg := range req.Messages {
		blocks, err := msg.Blocks()
		if err != nil {
			return Result{}, apierrors.Wrap(apierrors.KindValidation, "malformed message content", err)
		}
		msgs, err := flattenMessage(msg.Role, blocks)
		if err != nil {
			return Result{}, err
		}
		out.Messages = append(out.Messages, msgs...)
	}

	out.Messages = dropIdentityPreambles(out.Messages)

	var toolSchemas map[string]json.RawMessage
	if len(req.Tools) > 0 {
		tools, schemas, err := convertTools(req.Tools)
		if err != nil {
			return Result{}, err
		}
		out.Tools = tools
		toolSchemas = schemas
	}

	if len(req.ToolChoice) > 0 {
		tc, err := convertToolChoice(req.ToolChoice)
		if err != nil {
			return Result{}, err
		}
		out.ToolChoice = tc
	}

	out.MaxTokens = req.MaxTokens
	if req.Temperature != nil {
		out.Temperature = req.Temperature
	} else {
		one := 1.0
		out.Temperature = &one
	}
	if len(req.StopSequences) > 0 {
		out.Stop = req.StopSequences
	}
	if req.Stream {
		out.StreamOpts = &openai.StreamOptions{IncludeUsage: true}
	}

	return Result{Request: out, DroppedParams: dropped, ToolSchemas: toolSchemas}, nil
}

func systemMessage(system json.RawMessage) (openai.Message, bool, error) {
	if len(system) == 0 {
		return openai.Message{}, false, nil
	}
	var s string
	if err := json.Unmarshal(system, &s); err == nil {
		return rawTextMessage("system", s), true, nil
	}
	var parts []anchor.Block
	if err := json.Unmarshal(system, &parts); err != nil {
		return openai.Message{}, false, err
	}
	var texts []string
	for _, p := range parts {
		if p.Type == anchor.BlockText {
			texts = append(texts, p.Text)
		}
	}
	return rawTextMessage("system", strings.Join(texts, "\n\n")), true, nil
}

func rawTextMessage(role, text string) openai.Message {
	b, _ := json.Marshal(text)
	return openai.Message{Role: role, Content: b}
}

// flattenMessage walks an Anchor message's blocks and emits zero or more
// OpenAI messages per spec.md §4.1 step 2.
func flattenMessage(role string, blocks []anchor.Block) ([]openai.Message, error) {
	var out []openai.Message
	var textBuf strings.Builder
	var parts []openai.ContentPart
	var toolCalls []openai.ToolCall

	flushText := func() {
		if textBuf.Len() == 0 && len(parts) == 0 {
			return
		}
		if len(parts) == 0 {
			out = append(out, rawTextMessage(role, textBuf.String()))
		} else {
			if textBuf.Len() > 0 {
				parts = append([]openai.ContentPart{{Type: "text", Text: textBuf.String()}}, parts...)
			}
			b, _ := json.Marshal(parts)
			out = append(out, openai.Message{Role: role, Content: b})
		}
		textBuf.Reset()
		parts = nil
	}

	flushToolCalls := func() {
		if len(toolCalls) == 0 {
			return
		}
		out = append(out, openai.Message{Role: "assistant", ToolCalls: toolCalls})
		toolCalls = nil
	}

	for _, b := range blocks {
		switch b.Type {
		case anchor.BlockText:
			textBuf.WriteString(b.Text)

		case anchor.BlockImage:
			if b.Source == nil {
				return nil, apierrors.Validation("image block missing source")
			}
			flushTextPartial(&textBuf, &parts)
			url := fmt.Sprintf("data:%s;base64,%s", b.Source.MediaType, b.Source.Data)
			parts = append(parts, openai.ContentPart{Type: "image_url", ImageURL: &openai.ImageURL{URL: url}})

		case anchor.BlockToolUse:
			flushText()
			args, err := json.Marshal(json.RawMessage(orEmptyObject(b.Input)))
			if err != nil {
				return nil, apierrors.Wrap(apierrors.KindValidation, "invalid tool_use input", err)
			}
			toolCalls = append(toolCalls, openai.ToolCall{
				ID:   b.ID,
				Type: "function",
				Function: openai.ToolCallFunc{
					Name:      b.Name,
					Arguments: string(args),
				},
			})

		case anchor.BlockToolResult:
			flushText()
			flushToolCalls()
			content := stringifyToolResult(b)
			out = append(out, openai.Message{
				Role:       "tool",
				ToolCallID: b.ToolUseID,
				Content:    mustJSONString(content),
			})

		case anchor.BlockThinking:
			// Thinking blocks are assistant-internal; they carry no
			// OpenAI-side equivalent and are not replayed outbound.

		default:
			return nil, apierrors.Validation("unknown block type %q", b.Type)
		}
	}

	flushText()
	flushToolCalls()
	return out, nil
}

func flushTextPartial(buf *strings.Builder, parts *[]openai.ContentPart) {
	if buf.Len() == 0 {
		return
	}
	*parts = append(*parts, openai.ContentPart{Type: "text", Text: buf.String()})
	buf.Reset()
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}

func stringifyToolResult(b anchor.Block) string {
	var content string
	if len(b.Content) > 0 {
		var s string
		if err := json.Unmarshal(b.Content, &s); err == nil {
			content = s
		} else {
			content = string(b.Content)
		}
	}
	if b.IsError {
		content = "Error: " + content
	}
	return content
}

func mustJSONString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// dropIdentityPreambles removes assistant messages whose sole content is an
// identity-disclosure preamble (spec.md §4.1 step 3).
func dropIdentityPreambles(msgs []openai.Message) []openai.Message {
	out := msgs[:0:0]
	for _, m := range msgs {
		if m.Role == "assistant" && len(m.ToolCalls) == 0 && isIdentityPreamble(m.Content) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func isIdentityPreamble(content json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(content, &s); err != nil {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, p := range identityPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
