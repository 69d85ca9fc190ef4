package transform

import (
	"encoding/json"
	"regexp"

	"github.com/blackfuel-ai/claudish/internal/anchor"
	"github.com/blackfuel-ai/claudish/internal/openai"
	apierrors "github.com/blackfuel-ai/claudish/pkg/errors"
)

// invalidToolNameChar matches characters OpenAI-compatible backends reject
// in a function name; everything else is passed through.
var invalidToolNameChar = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// sanitizeToolName replaces disallowed characters and truncates to the
// common 64-char backend limit (spec.md §4.1 step 4).
func sanitizeToolName(name string) string {
	clean := invalidToolNameChar.ReplaceAllString(name, "_")
	if len(clean) > 64 {
		clean = clean[:64]
	}
	if clean == "" {
		clean = "tool"
	}
	return clean
}

// convertTools translates Anchor tool declarations into OpenAI function
// declarations (the Tool Schema Normalizer, spec.md §4.1 step 4). It also
// returns the sanitized-name -> declared-schema map the Streaming State
// Machine's termination step uses to validate assembled tool_use arguments
// (ValidateToolArguments below).
func convertTools(tools []anchor.Tool) ([]openai.Tool, map[string]json.RawMessage, error) {
	seen := make(map[string]bool, len(tools))
	out := make([]openai.Tool, 0, len(tools))
	schemas := make(map[string]json.RawMessage, len(tools))
	for _, t := range tools {
		name := sanitizeToolName(t.Name)
		for seen[name] {
			name += "_"
		}
		seen[name] = true

		schema := t.InputSchema
		if len(schema) == 0 {
			schema = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out = append(out, openai.Tool{
			Type: "function",
			Function: openai.ToolFunction{
				Name:        name,
				Description: t.Description,
				Parameters:  schema,
			},
		})
		schemas[name] = schema
	}
	return out, schemas, nil
}

// toolChoiceValue is the shape Anchor uses for a forced-tool choice.
type toolChoiceValue struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// convertToolChoice maps Anchor's tool_choice into OpenAI's shape (spec.md
// §4.1 step 5): "auto"/"none" pass through; {type:tool,name} becomes
// {type:function,function:{name}}.
func convertToolChoice(raw json.RawMessage) (json.RawMessage, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "auto", "none", "any":
			if s == "any" {
				s = "required"
			}
			b, _ := json.Marshal(s)
			return b, nil
		}
		return nil, apierrors.Validation("unknown tool_choice %q", s)
	}

	var tc toolChoiceValue
	if err := json.Unmarshal(raw, &tc); err != nil {
		return nil, apierrors.Wrap(apierrors.KindValidation, "invalid tool_choice", err)
	}
	if tc.Type != "tool" || tc.Name == "" {
		return nil, apierrors.Validation("unsupported tool_choice shape")
	}
	out := map[string]any{
		"type": "function",
		"function": map[string]string{
			"name": sanitizeToolName(tc.Name),
		},
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ValidateToolArguments checks arg_chars against the tool's declared
// input_schema once assembled, supplementing spec.md's plain "attempt to
// parse it as JSON" check (§4.2 termination step) with full schema
// validation when a schema is available. A mismatch is never fatal; the
// caller logs it as a warning.
func ValidateToolArguments(schema json.RawMessage, args map[string]any) error {
	if len(schema) == 0 {
		return nil
	}
	c, err := compileSchema(schema)
	if err != nil {
		return nil // malformed declared schema: nothing to validate against
	}
	return c.Validate(args)
}
