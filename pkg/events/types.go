// Package events defines the server-to-client stream event vocabulary and
// its wire payloads.
package events

import "time"

// Event names as they appear on the SSE "event:" line.
const (
	EventStatusUpdate   = "StatusUpdate"
	EventToolCallStart  = "ToolCallStart"
	EventToolCallResult = "ToolCallResult"
	EventResponseChunk  = "ResponseChunk"
	EventReasoningTrace = "ReasoningTrace"
	EventCompleted      = "Completed"
	EventError          = "Error"
)

// StagePlanning is the only reasoning stage currently emitted.
const StagePlanning = "PLANNING"

// StreamEvent is one server-to-client event: a name plus its JSON payload.
// A stream always terminates with exactly one Completed or Error event.
type StreamEvent struct {
	Name    string
	Payload any
}

// Terminal reports whether this event ends the stream.
func (e StreamEvent) Terminal() bool {
	return e.Name == EventCompleted || e.Name == EventError
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
