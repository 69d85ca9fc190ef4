package stream

// ReasoningPolicy selects how delta.reasoning fragments (chain-of-thought
// text some backends stream separately from delta.content) are surfaced,
// per spec.md §4.3.
type ReasoningPolicy string

const (
	ReasoningAsText     ReasoningPolicy = "as_text"
	ReasoningAsThinking ReasoningPolicy = "as_thinking"
	ReasoningSuppress   ReasoningPolicy = "suppress"
)

// ParsePolicy parses the CLAUDISH_REASONING_POLICY value, defaulting to
// as_text for anything unrecognized.
func ParsePolicy(s string) ReasoningPolicy {
	switch ReasoningPolicy(s) {
	case ReasoningAsThinking:
		return ReasoningAsThinking
	case ReasoningSuppress:
		return ReasoningSuppress
	default:
		return ReasoningAsText
	}
}
