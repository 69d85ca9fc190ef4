package stream

import "github.com/google/uuid"

// NewMessageID mints an opaque message id for message_start.
func NewMessageID() string {
	return "msg_" + uuid.New().String()
}

// NewToolUseID mints a toolu_ id for a tool_use block when the backend
// doesn't supply one.
func NewToolUseID() string {
	return "toolu_" + uuid.New().String()
}
