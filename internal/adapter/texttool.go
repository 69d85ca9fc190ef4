package adapter

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/blackfuel-ai/claudish/internal/openai"
	"github.com/blackfuel-ai/claudish/internal/registry"
)

// fencedToolCallRe matches a fenced JSON block some local fine-tunes emit
// in place of native tool calling, e.g.:
//
//	```tool_call
//	{"name": "Read", "arguments": {"file_path": "x.ts"}}
//	```
var fencedToolCallRe = regexp.MustCompile("(?s)```tool_call\\s*\\n(.*?)```")

type fencedCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// textToolCallAdapter performs capability gating like baseAdapter, and
// additionally scans accumulated text for a fenced tool-call convention,
// promoting a recognized block into a synthetic tool_calls delta before it
// reaches the Streaming State Machine. When nothing matches, behavior is
// identical to pure capability gating.
type textToolCallAdapter struct {
	family Family
	buf    strings.Builder
	slot   int
}

func (a *textToolCallAdapter) PrepareRequest(req *openai.Request, caps registry.Capabilities) {
	if !caps.SupportsTools {
		req.Tools = nil
		req.ToolChoice = nil
	}
}

// TransformDelta buffers streamed text looking for a complete fenced
// tool-call block. Once one closes, it clears delta.Content of the fenced
// text and instead populates delta.ToolCalls with the parsed call, so the
// rest of the pipeline sees it exactly like a native tool_calls delta.
func (a *textToolCallAdapter) TransformDelta(delta *openai.StreamDelta) {
	if delta.Content == "" {
		return
	}
	a.buf.WriteString(delta.Content)

	text := a.buf.String()
	// Offset in text where this delta's own content begins; anything before
	// it was already passed through on earlier deltas.
	cur := len(text) - len(delta.Content)
	loc := fencedToolCallRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return
	}

	var call fencedCall
	raw := text[loc[2]:loc[3]]
	if err := json.Unmarshal([]byte(raw), &call); err != nil || call.Name == "" {
		return
	}

	args, err := json.Marshal(call.Arguments)
	if err != nil {
		return
	}

	before := ""
	if loc[0] > cur {
		before = text[cur:loc[0]]
	}
	delta.Content = before + text[loc[1]:]
	delta.ToolCalls = []openai.ToolCall{{
		Index: a.slot,
		Type:  "function",
		Function: openai.ToolCallFunc{
			Name:      call.Name,
			Arguments: string(args),
		},
	}}
	a.slot++
	a.buf.Reset()
}

func (a *textToolCallAdapter) Reset() {
	a.buf.Reset()
	a.slot = 0
}
