// Package stream implements the Streaming State Machine: it consumes the
// backend's OpenAI-style SSE delta stream and emits a well-formed Anchor
// event sequence with correct block indices, interleaved tool and text
// blocks, ping keep-alives, usage deltas, and stop reasons.
//
// The translator is modeled as a step function State×Chunk → State×[Event]
// (spec.md §9): Step takes the current *State and one backend
// chunk and returns the Anchor events to write, mutating State in place.
// The HTTP layer is a thin loop calling Step and writing events — this
// mirrors the near-ancestor nielspeter-claude-code-proxy's
// streamOpenAIToClaude loop, generalized to allocate block indices
// dynamically instead of at fixed positions.
package stream

import "strings"

// BlockState tracks whether a text or thinking block is currently open and,
// if so, at which index.
type BlockState struct {
	Open  bool
	Index int
}

// ToolBlockState accumulates one backend tool-call slot's fragments.
type ToolBlockState struct {
	BlockIndex int
	ID         string
	Name       string
	ArgChars   strings.Builder
	Started    bool
	Closed     bool
}

// State is the StreamState owned exclusively by the one task handling a
// single request (spec.md §3, §9): no concurrent mutation, no locking.
type State struct {
	NextBlockIndex int

	TextBlock     BlockState
	ThinkingBlock BlockState
	ToolBlocks    map[int]*ToolBlockState
	toolOrder     []int // insertion order, so termination closes slots deterministically

	InputTokensSeen  int
	OutputTokensSeen int
	OutputCharsSeen  int // fallback basis for the 4-chars-per-token estimate when no usage is reported

	StopReason string
	Closed     bool
}

// New returns a freshly initialized StreamState.
func New() *State {
	return &State{ToolBlocks: make(map[int]*ToolBlockState)}
}

// toolBlock returns the accumulator for slot, creating and recording it in
// insertion order on first reference.
func (s *State) toolBlock(slot int) (*ToolBlockState, bool) {
	if tb, ok := s.ToolBlocks[slot]; ok {
		return tb, false
	}
	tb := &ToolBlockState{}
	s.ToolBlocks[slot] = tb
	s.toolOrder = append(s.toolOrder, slot)
	return tb, true
}

// allocIndex hands out the next block index and advances the counter.
func (s *State) allocIndex() int {
	i := s.NextBlockIndex
	s.NextBlockIndex++
	return i
}
