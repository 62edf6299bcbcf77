// Package agent defines the strategy contract of the agentic loop: the
// event vocabulary a strategy emits while performing one iteration, and the
// per-iteration context handed down by the orchestrator.
package agent

import "github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"

// StreamingMode controls which event kinds a strategy emits.
type StreamingMode string

const (
	// StreamingProgressive emits content and reasoning chunks as they arrive
	StreamingProgressive StreamingMode = "progressive"
	// StreamingFinalOnly suppresses progressive chunks; only tool calls,
	// final responses, status updates, and iteration completion are emitted
	StreamingFinalOnly StreamingMode = "final_only"
	// StreamingReasoningOnly emits reasoning chunks but no content chunks
	StreamingReasoningOnly StreamingMode = "reasoning_only"
)

// IterationContext is the orchestrator-owned context for one iteration.
type IterationContext struct {
	ConversationID string
	Iteration      int
	MaxIterations  int
	StreamingMode  StreamingMode
}

// StrategyEvent is one element of the event sequence a strategy produces
// during an iteration. The concrete variants below are the only
// implementations.
type StrategyEvent interface {
	strategyEventType() string
}

// ReasoningChunk is a fragment of model reasoning. Source distinguishes a
// native reasoning_content delta from text recovered out of think tags.
type ReasoningChunk struct {
	Content string
	Source  string
}

// ContentChunk is a fragment of user-visible answer text.
type ContentChunk struct {
	Content string
}

// ToolCallDetected surfaces a single complete tool call as soon as the
// strategy recognises it.
type ToolCallDetected struct {
	ToolCall models.ToolCall
}

// ToolCallsComplete surfaces the full batch of tool calls of one model
// response together with the assistant text that accompanied them.
type ToolCallsComplete struct {
	ToolCalls        []models.ToolCall
	AssistantContent string
}

// FinalResponse carries the complete answer text with reasoning stripped.
type FinalResponse struct {
	Content    string
	TokensUsed int
}

// StatusUpdate is a human-readable progress note.
type StatusUpdate struct {
	Status string
	Phase  string
}

// IterationComplete is the last event of every iteration. ShouldContinue is
// true iff the iteration produced at least one tool call and no final
// response.
type IterationComplete struct {
	TokensUsed     int
	ShouldContinue bool
}

// IterationFailed terminates an iteration whose provider stream died after
// it started. Any content emitted before it is partial; no IterationComplete
// follows.
type IterationFailed struct {
	Err error
}

func (ReasoningChunk) strategyEventType() string    { return "reasoning_chunk" }
func (ContentChunk) strategyEventType() string      { return "content_chunk" }
func (ToolCallDetected) strategyEventType() string  { return "tool_call_detected" }
func (ToolCallsComplete) strategyEventType() string { return "tool_calls_complete" }
func (FinalResponse) strategyEventType() string     { return "final_response" }
func (StatusUpdate) strategyEventType() string      { return "status_update" }
func (IterationComplete) strategyEventType() string { return "iteration_complete" }
func (IterationFailed) strategyEventType() string   { return "iteration_failed" }
