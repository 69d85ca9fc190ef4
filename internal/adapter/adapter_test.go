package adapter

import (
	"testing"

	"github.com/blackfuel-ai/claudish/internal/openai"
	"github.com/blackfuel-ai/claudish/internal/registry"
)

func TestResolve_FamilyDispatch(t *testing.T) {
	cases := map[string]Family{
		"ollama/qwen2.5-coder": FamilyQwen,
		"lmstudio:deepseek-r1": FamilyDeepSeek,
		"gemini-1.5-pro":       FamilyGemini,
		"gpt-4o-mini":          FamilyGPT,
		"llama3":               FamilyDefault,
	}
	for model, want := range cases {
		a := Resolve(model)
		var got Family
		switch v := a.(type) {
		case *textToolCallAdapter:
			got = v.family
		case *baseAdapter:
			got = v.family
		}
		if got != want {
			t.Errorf("Resolve(%q) family = %s, want %s", model, got, want)
		}
	}
}

func TestBaseAdapter_StripsToolsWhenUnsupported(t *testing.T) {
	a := Resolve("gpt-4o-mini")
	req := &openai.Request{Tools: []openai.Tool{{Type: "function"}}}
	a.PrepareRequest(req, registry.Capabilities{SupportsTools: false})
	if req.Tools != nil {
		t.Fatal("expected tools to be stripped when the backend lacks tool support")
	}
}

func TestBaseAdapter_KeepsToolsWhenSupported(t *testing.T) {
	a := Resolve("gpt-4o-mini")
	req := &openai.Request{Tools: []openai.Tool{{Type: "function"}}}
	a.PrepareRequest(req, registry.Capabilities{SupportsTools: true})
	if len(req.Tools) != 1 {
		t.Fatal("expected tools to survive when the backend supports them")
	}
}

func TestTextToolCallAdapter_PromotesFencedToolCall(t *testing.T) {
	a := Resolve("llama3")
	delta := &openai.StreamDelta{Content: "Sure, let me help.\n```tool_call\n{\"name\": \"Read\", \"arguments\": {\"file_path\": \"x.ts\"}}\n```\n"}
	a.TransformDelta(delta)

	if len(delta.ToolCalls) != 1 {
		t.Fatalf("expected a synthesized tool call, got %d", len(delta.ToolCalls))
	}
	if delta.ToolCalls[0].Function.Name != "Read" {
		t.Fatalf("expected tool name Read, got %q", delta.ToolCalls[0].Function.Name)
	}
	if delta.ToolCalls[0].Function.Arguments != `{"file_path":"x.ts"}` {
		t.Fatalf("unexpected arguments: %s", delta.ToolCalls[0].Function.Arguments)
	}
}

func TestTextToolCallAdapter_PassesThroughWhenNothingMatches(t *testing.T) {
	a := Resolve("llama3")
	delta := &openai.StreamDelta{Content: "just plain text"}
	a.TransformDelta(delta)
	if len(delta.ToolCalls) != 0 {
		t.Fatal("expected no synthesized tool calls for plain text")
	}
	if delta.Content != "just plain text" {
		t.Fatalf("expected content to pass through unmodified, got %q", delta.Content)
	}
}

func TestTextToolCallAdapter_Reset(t *testing.T) {
	a := Resolve("llama3").(*textToolCallAdapter)
	a.buf.WriteString("partial")
	a.slot = 3
	a.Reset()
	if a.buf.Len() != 0 || a.slot != 0 {
		t.Fatal("expected Reset to clear buffered text and the slot counter")
	}
}
