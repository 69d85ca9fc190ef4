// Package adapter implements the Adapter Layer: per-model-family hooks
// that mutate outbound payloads and inspect inbound deltas, selected by
// pattern-matching the model id the way the teacher's ResolveModelPolicy
// auto-detects a family by substring.
package adapter

import (
	"strings"

	"github.com/blackfuel-ai/claudish/internal/openai"
	"github.com/blackfuel-ai/claudish/internal/registry"
)

// Adapter is the small capability interface spec.md §9 calls for:
// prepare_request mutates the outbound payload before it's sent;
// transform_delta inspects/rewrites an inbound stream delta; reset clears
// any per-request state the adapter accumulated (e.g. for the text-based
// tool-call fallback below).
type Adapter interface {
	PrepareRequest(req *openai.Request, caps registry.Capabilities)
	TransformDelta(delta *openai.StreamDelta)
	Reset()
}

// Family is a model-family id used only for logging/diagnostics.
type Family string

const (
	FamilyDefault  Family = "default"
	FamilyQwen     Family = "qwen"
	FamilyDeepSeek Family = "deepseek"
	FamilyGemini   Family = "gemini"
	FamilyGPT      Family = "gpt"
)

// Resolve picks an Adapter for a model id by case-insensitive substring
// match. The cases are tried in order and the first match wins (qwen,
// deepseek, gemini/google, gpt/openai); anything else gets the default.
func Resolve(modelID string) Adapter {
	lower := strings.ToLower(modelID)
	switch {
	case containsAny(lower, "qwen"):
		return &textToolCallAdapter{family: FamilyQwen}
	case containsAny(lower, "deepseek"):
		return &textToolCallAdapter{family: FamilyDeepSeek}
	case containsAny(lower, "gemini", "google"):
		return &baseAdapter{family: FamilyGemini}
	case containsAny(lower, "gpt", "openai"):
		return &baseAdapter{family: FamilyGPT}
	default:
		return &textToolCallAdapter{family: FamilyDefault}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// baseAdapter performs capability gating only (spec.md §4.5 step 4): strip
// tools the backend can't honor. It passes deltas through unmodified.
type baseAdapter struct {
	family Family
}

func (a *baseAdapter) PrepareRequest(req *openai.Request, caps registry.Capabilities) {
	if !caps.SupportsTools {
		req.Tools = nil
		req.ToolChoice = nil
	}
}

func (a *baseAdapter) TransformDelta(delta *openai.StreamDelta) {}

func (a *baseAdapter) Reset() {}
